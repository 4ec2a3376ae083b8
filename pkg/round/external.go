package round

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/babyjub"
)

// MessageForwarder is the external orchestration layer that forwards voter-submitted
// envelopes to a round's entry points. No implementation lives in this module; Machine
// holds one in its Forwarder field but none of its methods call it.
type MessageForwarder interface {
	ForwardMessage(roundID string, msg Message, encPubKey babyjub.PubKey) error
}

// OperatorRegistry answers whether addr is the designated operator for roundID. Registry
// membership is left to the host. Machine holds one in its Operators field but never
// consults it: operator checks compare the sender against the round's persisted Operator
// address (UploadDeactivateMessage, and pkg/abci's requireOperator).
type OperatorRegistry interface {
	IsOperator(roundID string, addr string) bool
}

// FundsSource answers the round's current escrowed balance and moves funds out of escrow.
// The round state machine never holds or moves value itself (spec §1 scopes the token/bank
// layer out); Claim only computes amounts and calls through this seam.
type FundsSource interface {
	Balance() (*big.Int, error)
	Send(to string, amount *big.Int) error
}
