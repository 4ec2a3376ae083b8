package round

import "errors"

// Sentinel errors for round state-machine operations (spec §7's error taxonomy). Grounded
// on the sentinel-error-per-package style of pkg/ledger/errors.go / pkg/batch/errors.go.
var (
	// Authorization
	ErrUnauthorized                = errors.New("round: unauthorized")
	ErrTreasuryManagerUnauthorized = errors.New("round: treasury manager unauthorized")
	ErrOperatorUnauthorized        = errors.New("round: operator unauthorized")

	// Period / ordering
	ErrPeriod          = errors.New("round: operation not permitted in current period")
	ErrDmsgLeftProcess = errors.New("round: deactivate messages remain unprocessed")
	ErrMsgLeftProcess  = errors.New("round: messages remain unprocessed")
	ErrAllFundsClaimed = errors.New("round: all funds already claimed")
	ErrWrongTimeSet    = errors.New("round: invalid voting time window")

	// Admission
	ErrAlreadySignedUp           = errors.New("round: pubkey already signed up")
	ErrUserAlreadyRegistered     = errors.New("round: sender already registered")
	ErrWhitelistNotConfigured    = errors.New("round: whitelist not configured")
	ErrOracleWhitelistNotConfig  = errors.New("round: oracle whitelist not configured")
	ErrInvalidBase64             = errors.New("round: invalid base64 payload")
	ErrInvalidSignature          = errors.New("round: invalid oracle signature")
	ErrVerificationFailed        = errors.New("round: signature verification failed")

	// Capacity / bounds
	ErrMaxVoterExceeded           = errors.New("round: max voter count exceeded")
	ErrMaxVoteOptionsExceeded     = errors.New("round: max vote option count exceeded")
	ErrMaxDeactivateMsgsReached   = errors.New("round: max deactivate message count reached")
	ErrEncPubKeyAlreadyUsed       = errors.New("round: encryption pubkey already used")
	ErrNewKeyExist                = errors.New("round: new key nullifier already used")
	ErrBatchLengthMismatch        = errors.New("round: message and enc pubkey batch lengths differ")

	// Verification
	ErrHexDecoding    = errors.New("round: hex decoding error")
	ErrSynthesis      = errors.New("round: proof synthesis error")

	// Configuration
	ErrUnsupportedCircuitType          = errors.New("round: unsupported circuit type")
	ErrUnsupportedCertificationSystem  = errors.New("round: unsupported certification system")
	ErrTitleIsEmpty                    = errors.New("round: title must not be empty")
	ErrFeeGrantAlreadyExists           = errors.New("round: fee grant already exists")
	ErrAmountIsZero                    = errors.New("round: amount must be nonzero")
	ErrVotingPowerIsZero               = errors.New("round: voting power must be nonzero")

	// Not-found sentinels for KV lookups, mirroring pkg/ledger/errors.go's explicit-error
	// convention for "not yet set" rather than returning nil, nil.
	ErrNotFound = errors.New("round: key not found")
)

// InvalidProofError is returned when a Groth16 pairing check fails for a specific circuit
// step, carrying the step name (spec §7: InvalidProof{step}).
type InvalidProofError struct {
	Step string
}

func (e *InvalidProofError) Error() string {
	return "round: invalid proof: " + e.Step
}

// NewInvalidProofError constructs an InvalidProofError for step.
func NewInvalidProofError(step string) error {
	return &InvalidProofError{Step: step}
}
