// Package abci exposes a pkg/round.Machine as a CometBFT ABCI application: the only
// transport boundary this module defines (spec §1's "we do not specify a transport layer or
// a host runtime" Non-goal). Grounded on pkg/consensus/abci_validator.go's ValidatorApp
// skeleton — the CheckTx/FinalizeBlock/Commit/Query method shapes and stdlib-logger style
// are carried over; the transaction payload and dispatch logic are generalized from
// ValidatorBlock processing to the round entry points in SPEC_FULL.md.
package abci

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sync"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/dorafactory/amaci-core/pkg/round"
)

// KV is the narrow persistence interface the app's state (round.Store + committed-height
// bookkeeping) is built on, matching round.KV / pkg/kvdb.KVAdapter.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

var keyCommittedHeight = []byte("abci:committed_height")

// App adapts one round.Machine to the abcitypes.Application interface. One App instance
// serves exactly one round (spec's MaciParameters/RoundInfo are per-round singletons, not a
// multi-round registry), matching contract.rs's single-instantiation-per-contract model.
type App struct {
	logger *log.Logger

	mu      sync.Mutex
	kv      KV
	machine *round.Machine
	funds   round.FundsSource
	clock   *BlockClock

	height  int64
	appHash []byte
}

// NewApp wraps machine (already constructed over a Store backed by kv, with clock.Now as
// its Now func) as an ABCI application. funds may be nil if the host never calls Claim
// through this app.
func NewApp(kv KV, machine *round.Machine, funds round.FundsSource, clock *BlockClock) *App {
	app := &App{
		logger:  log.New(log.Writer(), "[amaci-abci] ", log.LstdFlags),
		kv:      kv,
		machine: machine,
		funds:   funds,
		clock:   clock,
	}
	if b, err := kv.Get(keyCommittedHeight); err == nil && len(b) == 8 {
		app.height = beInt64(b)
	}
	return app
}

// Tx is the wire envelope every transaction is JSON-encoded as (spec §6 "Wire formats"):
// a tagged union discriminated by Type, with Sender carrying the caller's address for the
// authorization checks spec §7 requires on admin/operator-gated entry points. Payload holds
// the entry-point-specific arguments, decoded per Type in dispatch.
type Tx struct {
	Type    string          `json:"type"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

// Transaction type tags, one per round.Machine entry point (spec §4.6's operation list),
// plus TxFund, which credits the EscrowFundsSource rather than calling the machine.
const (
	TxInstantiate          = "instantiate"
	TxSetRoundInfo         = "set_round_info"
	TxSetWhitelist         = "set_whitelist"
	TxSetVoteOptionsMap    = "set_vote_options_map"
	TxSignUp               = "sign_up"
	TxPublishMessage       = "publish_message"
	TxPublishMessageBatch  = "publish_message_batch"
	TxPublishDeactivateMsg = "publish_deactivate_message"
	TxUploadDeactivateMsg  = "upload_deactivate_message"
	TxProcessDeactivateMsg = "process_deactivate_message"
	TxAddNewKey            = "add_new_key"
	TxPreAddNewKey         = "pre_add_new_key"
	TxStartProcessPeriod   = "start_process_period"
	TxProcessMessage       = "process_message"
	TxStopProcessingPeriod = "stop_processing_period"
	TxProcessTally         = "process_tally"
	TxStopTallyingPeriod   = "stop_tallying_period"
	TxClaim                = "claim"
	TxFund                 = "fund"
)

// Info reports the app's current committed height, mirroring ValidatorApp.Info's recovery
// logging for CometBFT resync.
func (app *App) Info(ctx context.Context, req *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	return &abcitypes.ResponseInfo{
		Data:             "amaci round application",
		Version:          "1.0.0",
		AppVersion:       1,
		LastBlockHeight:  app.height,
		LastBlockAppHash: app.appHash,
	}, nil
}

// CheckTx performs cheap, side-effect-free structural validation: the envelope must decode
// and name a known Type. Guard-order/state checks run only in FinalizeBlock, exactly like
// ValidatorApp.CheckTx defers invariant checking to the execution path.
func (app *App) CheckTx(ctx context.Context, req *abcitypes.RequestCheckTx) (*abcitypes.ResponseCheckTx, error) {
	var tx Tx
	if err := json.Unmarshal(req.Tx, &tx); err != nil {
		return &abcitypes.ResponseCheckTx{Code: 1, Log: "invalid tx envelope: " + err.Error()}, nil
	}
	if !knownTxType(tx.Type) {
		return &abcitypes.ResponseCheckTx{Code: 2, Log: "unknown tx type: " + tx.Type}, nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0, GasWanted: 1, GasUsed: 1}, nil
}

// FinalizeBlock executes every transaction in the block against the round machine in order.
func (app *App) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.clock.Set(req.Time.Unix())

	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, raw := range req.Txs {
		result := app.execTx(raw)
		results[i] = &result
	}
	return &abcitypes.ResponseFinalizeBlock{TxResults: results}, nil
}

func (app *App) execTx(raw []byte) abcitypes.ExecTxResult {
	var tx Tx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return abcitypes.ExecTxResult{Code: 1, Log: "invalid tx envelope: " + err.Error()}
	}

	if err := app.dispatch(tx); err != nil {
		return abcitypes.ExecTxResult{Code: 10, Log: err.Error()}
	}

	return abcitypes.ExecTxResult{
		Code: 0,
		Events: []abcitypes.Event{{
			Type: tx.Type,
			Attributes: []abcitypes.EventAttribute{
				{Key: "sender", Value: tx.Sender},
			},
		}},
	}
}

// dispatch routes one decoded Tx to its round.Machine method, decoding Payload into the
// method's argument shape. Authorization for operator-gated entry points (spec §7's
// authorization-first guard order) is enforced here, against the round's persisted
// Operator address, since those entry points take no sender parameter themselves.
// Admin-gated setters receive tx.Sender and check it inside round.Machine.
func (app *App) dispatch(tx Tx) error {
	switch tx.Type {
	case TxInstantiate:
		var p round.InstantiateParams
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.Instantiate(p)

	case TxSetRoundInfo:
		var p struct{ Info round.RoundInfo }
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.SetRoundInfo(tx.Sender, p.Info)

	case TxSetWhitelist:
		var p struct {
			Addrs     []string
			MaxVoters int64
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.SetWhitelist(tx.Sender, p.Addrs, p.MaxVoters)

	case TxSetVoteOptionsMap:
		var p struct{ MaxOptions int64 }
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.SetVoteOptionsMap(tx.Sender, p.MaxOptions)

	case TxSignUp:
		var p struct {
			PubKey round.PubKey
			Oracle *round.OracleCertificate
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		_, err := app.machine.SignUp(tx.Sender, p.PubKey, p.Oracle)
		return err

	case TxPublishMessage:
		var p struct {
			Msg       round.Message
			EncPubKey round.PubKey
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.PublishMessage(p.Msg, p.EncPubKey)

	case TxPublishMessageBatch:
		var p struct {
			Msgs       []round.Message
			EncPubKeys []round.PubKey
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.PublishMessageBatch(p.Msgs, p.EncPubKeys)

	case TxPublishDeactivateMsg:
		var p struct {
			Msg       round.Message
			EncPubKey round.PubKey
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.PublishDeactivateMessage(p.Msg, p.EncPubKey)

	case TxUploadDeactivateMsg:
		var p struct{ Batch [][]*big.Int }
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.UploadDeactivateMessage(tx.Sender, p.Batch)

	case TxProcessDeactivateMsg:
		if err := app.requireOperator(tx.Sender); err != nil {
			return err
		}
		var p struct {
			Size                    int64
			NewDeactivateCommitment *big.Int
			NewDeactivateRoot       *big.Int
			Proof                   round.Groth16ProofHex
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.ProcessDeactivateMessage(p.Size, p.NewDeactivateCommitment, p.NewDeactivateRoot, p.Proof)

	case TxAddNewKey:
		var p struct {
			PubKey    round.PubKey
			Nullifier *big.Int
			D         [4]*big.Int
			Proof     round.Groth16ProofHex
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		_, err := app.machine.AddNewKey(p.PubKey, p.Nullifier, p.D, p.Proof)
		return err

	case TxPreAddNewKey:
		var p struct {
			PubKey    round.PubKey
			Nullifier *big.Int
			D         [4]*big.Int
			Proof     round.Groth16ProofHex
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		_, err := app.machine.PreAddNewKey(p.PubKey, p.Nullifier, p.D, p.Proof)
		return err

	case TxStartProcessPeriod:
		if err := app.requireOperator(tx.Sender); err != nil {
			return err
		}
		return app.machine.StartProcessPeriod()

	case TxProcessMessage:
		if err := app.requireOperator(tx.Sender); err != nil {
			return err
		}
		var p struct {
			NewStateCommitment *big.Int
			Proof              round.Groth16ProofHex
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.ProcessMessage(p.NewStateCommitment, p.Proof)

	case TxStopProcessingPeriod:
		if err := app.requireOperator(tx.Sender); err != nil {
			return err
		}
		return app.machine.StopProcessingPeriod()

	case TxProcessTally:
		if err := app.requireOperator(tx.Sender); err != nil {
			return err
		}
		var p struct {
			NewTallyCommitment *big.Int
			Proof              round.Groth16ProofHex
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.ProcessTally(p.NewTallyCommitment, p.Proof)

	case TxStopTallyingPeriod:
		if err := app.requireOperator(tx.Sender); err != nil {
			return err
		}
		var p struct {
			Results []*big.Int
			Salt    *big.Int
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return app.machine.StopTallyingPeriod(p.Results, p.Salt)

	case TxClaim:
		if app.funds == nil {
			return fmt.Errorf("abci: no FundsSource wired, cannot claim")
		}
		_, err := app.machine.Claim(app.funds)
		return err

	case TxFund:
		if app.funds == nil {
			return fmt.Errorf("abci: no FundsSource wired, cannot fund")
		}
		escrow, ok := app.funds.(*EscrowFundsSource)
		if !ok {
			return fmt.Errorf("abci: wired FundsSource does not accept direct deposits")
		}
		var p struct {
			Amount *big.Int
		}
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return err
		}
		return escrow.Deposit(p.Amount)

	default:
		return fmt.Errorf("abci: unknown tx type %q", tx.Type)
	}
}

// requireOperator enforces spec §7's authorization-before-phase guard ordering for the
// operator-gated proof-intake entry points, which take no sender parameter in round.Machine
// itself. Checked against the round's persisted Operator address (same source of truth
// UploadDeactivateMessage and Claim use), not a separate external registry.
func (app *App) requireOperator(sender string) error {
	state, err := app.machine.Query()
	if err != nil {
		return err
	}
	if sender != state.Operator {
		return fmt.Errorf("abci: %q is not the round operator", sender)
	}
	return nil
}

// Commit persists the app's committed height, matching ValidatorApp.Commit's ABCI-state
// flush for CometBFT recovery.
func (app *App) Commit(ctx context.Context, req *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.height++
	app.appHash = computeAppHash(app.machine)

	if err := app.kv.Set(keyCommittedHeight, beBytes(app.height)); err != nil {
		app.logger.Printf("failed to persist committed height: %v", err)
	}

	retainHeight := app.height - 100
	if retainHeight < 0 {
		retainHeight = 0
	}
	return &abcitypes.ResponseCommit{RetainHeight: retainHeight}, nil
}

// Query answers read-only state queries, dispatching on req.Path to the matching
// round.Machine query method (query.go). Mirrors ValidatorApp.Query's path-switch shape.
func (app *App) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	switch req.Path {
	case "/round":
		state, err := app.machine.Query()
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		b, _ := json.Marshal(state)
		return &abcitypes.ResponseQuery{Code: 0, Value: b}, nil

	case "/state_tree_root":
		b, _ := json.Marshal(app.machine.StateTreeRoot())
		return &abcitypes.ResponseQuery{Code: 0, Value: b}, nil

	case "/deactivate_tree_root":
		b, _ := json.Marshal(app.machine.DeactivateTreeRoot())
		return &abcitypes.ResponseQuery{Code: 0, Value: b}, nil

	case "/operator_performance":
		perf, err := app.machine.OperatorPerformance()
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		b, _ := json.Marshal(perf)
		return &abcitypes.ResponseQuery{Code: 0, Value: b}, nil

	case "/tally_deadline":
		deadline, err := app.machine.TallyDeadline()
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		return &abcitypes.ResponseQuery{Code: 0, Value: []byte(fmt.Sprintf("%d", deadline))}, nil

	default:
		return &abcitypes.ResponseQuery{Code: 2, Log: "unknown query path: " + req.Path}, nil
	}
}

// PrepareProposal accepts the mempool's transaction order unchanged — the round machine has
// no transaction-ordering preference of its own.
func (app *App) PrepareProposal(ctx context.Context, req *abcitypes.RequestPrepareProposal) (*abcitypes.ResponsePrepareProposal, error) {
	return &abcitypes.ResponsePrepareProposal{Txs: req.Txs}, nil
}

// ProcessProposal rejects a proposed block only if it contains a transaction that fails to
// decode as a Tx envelope; full guard/state validation still happens in FinalizeBlock.
func (app *App) ProcessProposal(ctx context.Context, req *abcitypes.RequestProcessProposal) (*abcitypes.ResponseProcessProposal, error) {
	for _, raw := range req.Txs {
		var tx Tx
		if err := json.Unmarshal(raw, &tx); err != nil || !knownTxType(tx.Type) {
			return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}, nil
		}
	}
	return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_ACCEPT}, nil
}

// ExtendVote/VerifyVoteExtension: the round machine does not use vote extensions.
func (app *App) ExtendVote(ctx context.Context, req *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *App) VerifyVoteExtension(ctx context.Context, req *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

// State-sync snapshotting is not implemented; a node resyncs by replaying blocks.
func (app *App) ListSnapshots(ctx context.Context, req *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *App) OfferSnapshot(ctx context.Context, req *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{Result: abcitypes.ResponseOfferSnapshot_ABORT}, nil
}

func (app *App) LoadSnapshotChunk(ctx context.Context, req *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *App) ApplySnapshotChunk(ctx context.Context, req *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{Result: abcitypes.ResponseApplySnapshotChunk_ABORT}, nil
}

// InitChain instantiates the round from genesis app_state, if provided.
func (app *App) InitChain(ctx context.Context, req *abcitypes.RequestInitChain) (*abcitypes.ResponseInitChain, error) {
	app.logger.Printf("initializing amaci round application - chain: %s", req.ChainId)
	if len(req.AppStateBytes) == 0 {
		return &abcitypes.ResponseInitChain{}, nil
	}
	var p round.InstantiateParams
	if err := json.Unmarshal(req.AppStateBytes, &p); err != nil {
		return nil, fmt.Errorf("abci: invalid genesis app_state: %w", err)
	}
	if err := app.machine.Instantiate(p); err != nil {
		return nil, fmt.Errorf("abci: genesis instantiate failed: %w", err)
	}
	return &abcitypes.ResponseInitChain{}, nil
}

func knownTxType(t string) bool {
	switch t {
	case TxInstantiate, TxSetRoundInfo, TxSetWhitelist, TxSetVoteOptionsMap, TxSignUp,
		TxPublishMessage, TxPublishMessageBatch, TxPublishDeactivateMsg, TxUploadDeactivateMsg,
		TxProcessDeactivateMsg, TxAddNewKey, TxPreAddNewKey, TxStartProcessPeriod,
		TxProcessMessage, TxStopProcessingPeriod, TxProcessTally, TxStopTallyingPeriod, TxClaim,
		TxFund:
		return true
	}
	return false
}

// computeAppHash derives a deterministic app hash from the round's current commitments and
// counters, so CometBFT can detect divergent app state across nodes. Grounded on
// ValidatorApp.generateAppHash's "hash the deterministic summary of committed state" idiom,
// generalized from XOR-folding bundle IDs to hashing the round's commitment scalars.
func computeAppHash(m *round.Machine) []byte {
	state, err := m.Query()
	if err != nil {
		return []byte("amaci_empty_state")
	}
	parts := []string{
		string(state.Period),
		bigString(state.CurrentStateCommitment),
		bigString(state.CurrentTallyCommitment),
		bigString(state.CurrentDeactivateCommitment),
		fmt.Sprintf("%d", state.NumSignUps),
		fmt.Sprintf("%d", state.MsgChainLength),
		fmt.Sprintf("%d", state.ProcessedMsgCount),
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%v", parts)))
	return h[:]
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func beBytes(v int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func beInt64(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = (v << 8) | int64(c)
	}
	return v
}
