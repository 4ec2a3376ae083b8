package abci

import (
	"fmt"
	"math/big"
	"sync"
)

var keyEscrowBalance = []byte("abci:escrow_balance")

// EscrowFundsSource implements round.FundsSource over the app's KV store, standing in for
// the "single native-token balance at the contract" spec §4 describes (a bank/token module
// is out of scope per spec §1). Balance is a plain big.Int counter; Deposit (driven by the
// "fund" tx type) credits it, Send (driven by Machine.Claim) debits it and logs the payee —
// there is no real token transfer without a host chain's bank module wired in.
type EscrowFundsSource struct {
	mu     sync.Mutex
	kv     KV
	onSend func(to string, amount *big.Int)
}

// NewEscrowFundsSource wraps kv as a round.FundsSource. onSend, if non-nil, is invoked after
// every successful Send so a host can mirror the payout onto a real token ledger.
func NewEscrowFundsSource(kv KV, onSend func(to string, amount *big.Int)) *EscrowFundsSource {
	return &EscrowFundsSource{kv: kv, onSend: onSend}
}

func (e *EscrowFundsSource) Balance() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.load()
}

func (e *EscrowFundsSource) Send(to string, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	bal, err := e.load()
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("abci: escrow balance %s smaller than payout %s", bal, amount)
	}
	bal = new(big.Int).Sub(bal, amount)
	if err := e.save(bal); err != nil {
		return err
	}
	if e.onSend != nil {
		e.onSend(to, amount)
	}
	return nil
}

// Deposit credits amount into escrow; it is not part of round.FundsSource, only called from
// the "fund" tx handler.
func (e *EscrowFundsSource) Deposit(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("abci: invalid deposit amount")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	bal, err := e.load()
	if err != nil {
		return err
	}
	return e.save(new(big.Int).Add(bal, amount))
}

func (e *EscrowFundsSource) load() (*big.Int, error) {
	b, err := e.kv.Get(keyEscrowBalance)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return big.NewInt(0), nil
	}
	bal := new(big.Int)
	if err := bal.UnmarshalText(b); err != nil {
		return nil, fmt.Errorf("abci: decode escrow balance: %w", err)
	}
	return bal, nil
}

func (e *EscrowFundsSource) save(bal *big.Int) error {
	b, err := bal.MarshalText()
	if err != nil {
		return err
	}
	return e.kv.Set(keyEscrowBalance, b)
}
