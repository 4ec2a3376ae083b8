package abci

import (
	"math/big"
	"testing"
)

type memKV struct{ m map[string][]byte }

func newMemKV() *memKV { return &memKV{m: make(map[string][]byte)} }

func (k *memKV) Get(key []byte) ([]byte, error) { return k.m[string(key)], nil }
func (k *memKV) Set(key, value []byte) error {
	k.m[string(key)] = append([]byte(nil), value...)
	return nil
}

func TestEscrowFundsSourceDepositAndSend(t *testing.T) {
	kv := newMemKV()
	var sent []string
	funds := NewEscrowFundsSource(kv, func(to string, amount *big.Int) {
		sent = append(sent, to+":"+amount.String())
	})

	bal, err := funds.Balance()
	if err != nil {
		t.Fatal(err)
	}
	if bal.Sign() != 0 {
		t.Fatalf("expected zero starting balance, got %s", bal)
	}

	if err := funds.Deposit(big.NewInt(1000)); err != nil {
		t.Fatal(err)
	}
	bal, _ = funds.Balance()
	if bal.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected balance 1000 after deposit, got %s", bal)
	}

	if err := funds.Send("operator", big.NewInt(400)); err != nil {
		t.Fatal(err)
	}
	bal, _ = funds.Balance()
	if bal.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected balance 600 after send, got %s", bal)
	}
	if len(sent) != 1 || sent[0] != "operator:400" {
		t.Fatalf("expected onSend callback to fire once for operator:400, got %v", sent)
	}
}

func TestEscrowFundsSourceSendMoreThanBalanceFails(t *testing.T) {
	kv := newMemKV()
	funds := NewEscrowFundsSource(kv, nil)
	if err := funds.Deposit(big.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := funds.Send("admin", big.NewInt(101)); err == nil {
		t.Fatal("expected error sending more than escrowed balance")
	}
}

func TestEscrowFundsSourceRejectsNegativeDeposit(t *testing.T) {
	kv := newMemKV()
	funds := NewEscrowFundsSource(kv, nil)
	if err := funds.Deposit(big.NewInt(-1)); err == nil {
		t.Fatal("expected error depositing a negative amount")
	}
}
