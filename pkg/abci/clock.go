package abci

import "sync/atomic"

// BlockClock publishes the current block's unix timestamp as a round.Machine Now() source.
// It exists to break the construction-order cycle between Machine (which needs a Now func
// at construction time) and App (which only learns the block time once FinalizeBlock runs):
// the host constructs one BlockClock, passes BlockClock.Now to round.NewMachine, and passes
// the same BlockClock to NewApp, which advances it every FinalizeBlock.
type BlockClock struct {
	unix atomic.Int64
}

// NewBlockClock returns a clock reading 0 until the first block is finalized.
func NewBlockClock() *BlockClock { return &BlockClock{} }

// Now implements the round.Machine Now func signature.
func (c *BlockClock) Now() int64 { return c.unix.Load() }

// Set advances the clock to t, the current block header's timestamp.
func (c *BlockClock) Set(t int64) { c.unix.Store(t) }
