package round

import (
	"math/big"
	"testing"
)

// memKV is a minimal in-memory KV for round tests.
type memKV struct{ m map[string][]byte }

func newMemKV() *memKV { return &memKV{m: make(map[string][]byte)} }

func (k *memKV) Get(key []byte) ([]byte, error) { return k.m[string(key)], nil }
func (k *memKV) Set(key, value []byte) error {
	k.m[string(key)] = append([]byte(nil), value...)
	return nil
}

type fakeFunds struct {
	balance *big.Int
	sent    map[string]*big.Int
}

func newFakeFunds(balance int64) *fakeFunds {
	return &fakeFunds{balance: big.NewInt(balance), sent: make(map[string]*big.Int)}
}

func (f *fakeFunds) Balance() (*big.Int, error) { return f.balance, nil }
func (f *fakeFunds) Send(to string, amount *big.Int) error {
	f.balance = new(big.Int).Sub(f.balance, amount)
	prev := f.sent[to]
	if prev == nil {
		prev = big.NewInt(0)
	}
	f.sent[to] = new(big.Int).Add(prev, amount)
	return nil
}

func newTestMachine(t *testing.T, now int64) *Machine {
	t.Helper()
	store := NewStore(newMemKV())
	m, err := NewMachine(store, nil, nil, func() int64 { return now })
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

func instantiateForTest(t *testing.T, m *Machine, start, end int64) {
	t.Helper()
	err := m.Instantiate(InstantiateParams{
		Admin:        "admin",
		Operator:     "operator",
		FeeRecipient: "fee-recipient",
		Params:       MaciParameters{StateTreeDepth: 2, IntStateTreeDepth: 1, VoteOptionTreeDepth: 1},
		CircuitType:  CircuitType1P1V,
		RoundInfo:    RoundInfo{Title: "test round"},
		VotingTime:   VotingTime{Start: start, End: end},

		CoordinatorHash:   big.NewInt(1),
		VoiceCreditAmount: big.NewInt(100),
	})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
}

// TestClaimTallyTimeoutOverridesPeriod mirrors tests.rs's worked settlement example: once the
// tally timeout has elapsed past voting end, Claim refunds the entire balance to admin
// regardless of the round's current period (spec §9 open question #9).
func TestClaimTallyTimeoutOverridesPeriod(t *testing.T) {
	start := int64(1000)
	end := int64(2000)
	afterTimeout := end + TallyTimeoutSeconds + 1

	m := newTestMachine(t, start)
	instantiateForTest(t, m, start, end)

	// Advance the clock past the tally timeout while the round is still stuck in Voting.
	m.Now = func() int64 { return afterTimeout }

	funds := newFakeFunds(1_000_000)
	result, err := m.Claim(funds)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !result.IsTallyTimeout {
		t.Fatalf("expected IsTallyTimeout=true")
	}
	if funds.balance.Sign() != 0 {
		t.Fatalf("expected escrow fully drained, balance=%s", funds.balance)
	}
	if got := funds.sent["admin"]; got == nil || got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("expected admin to receive full balance, got %v", got)
	}

	// A second claim must fail: funds already claimed.
	if _, err := m.Claim(funds); err != ErrAllFundsClaimed {
		t.Fatalf("expected ErrAllFundsClaimed on re-claim, got %v", err)
	}
}

// TestClaimBeforeEndedPeriodFails confirms claim outside the tally-timeout override still
// enforces the Ended-period guard (spec §4.7's `Period | claim | bal>0 | Ended` row).
func TestClaimBeforeEndedPeriodFails(t *testing.T) {
	start := int64(1000)
	end := int64(2000)
	m := newTestMachine(t, start)
	instantiateForTest(t, m, start, end)

	m.Now = func() int64 { return start + 1 } // still Voting, well within the tally timeout

	funds := newFakeFunds(500)
	if _, err := m.Claim(funds); err != ErrPeriod {
		t.Fatalf("expected ErrPeriod, got %v", err)
	}
}

// TestClaimZeroBalanceFails confirms a zero balance can never be claimed (spec §4.7).
func TestClaimZeroBalanceFails(t *testing.T) {
	start := int64(1000)
	end := int64(2000)
	m := newTestMachine(t, start)
	instantiateForTest(t, m, start, end)

	m.Now = func() int64 { return end + TallyTimeoutSeconds + 1 }

	funds := newFakeFunds(0)
	if _, err := m.Claim(funds); err != ErrAllFundsClaimed {
		t.Fatalf("expected ErrAllFundsClaimed, got %v", err)
	}
}

func TestCalculateOperatorPerformanceCapsAtHundred(t *testing.T) {
	meta := &Meta{
		Params:           MaciParameters{StateTreeDepth: 2},
		TallyPenaltyRate: 40,
		DelayRecords: []DelayRecord{
			{Kind: DelayTally, Count: 1},
			{Kind: DelayTally, Count: 1},
			{Kind: DelayTally, Count: 1},
			{Kind: DelayDeactivate, Count: 10},
		},
	}
	perf := calculateOperatorPerformance(meta)
	if perf.MissRate != 0 {
		t.Fatalf("expected penalty to cap at 100%% (miss rate 0), got %d", perf.MissRate)
	}
}
