package round

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
)

// KV is the narrow key-value interface Store is built on — the same shape
// pkg/kvdb.KVAdapter exposes, grounded on pkg/ledger/store.go's KV abstraction.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Store provides namespaced access to round state in the underlying KV store (spec §6
// "Persisted state layout": one namespace per logical entity, big-endian U256 keys or
// (x_be, y_be) pubkey-addressed keys). Grounded on pkg/ledger/store.go's key-layout idiom.
//
// CONCURRENCY: Store assumes single-writer access, called only from the ABCI
// FinalizeBlock/Commit thread (spec §5) — concurrent callers must synchronize externally.
type Store struct {
	kv KV
}

// NewStore wraps kv in a round Store.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// ====== Key layout ======

var (
	keyMeta = []byte("round:meta") // -> Meta (JSON)

	prefixNode           = []byte("round:nodes:")
	prefixDNode          = []byte("round:dnodes:")
	prefixMsgHash        = []byte("round:msg_hashes:")
	prefixDmsgHash       = []byte("round:dmsg_hashes:")
	prefixStateRootByDmsg = []byte("round:state_root_by_dmsg:")
	prefixResult         = []byte("round:results:")

	prefixNullifier   = []byte("round:nullifiers:")
	prefixUsedEncKey  = []byte("round:used_enc_pub_keys:")
	prefixSignuped    = []byte("round:signuped:")
	prefixOracleWL    = []byte("round:oracle_whitelist:")
	prefixWhitelist   = []byte("round:whitelist:")
	prefixVoiceCredit = []byte("round:voice_credit_balance:")
)

func u256Key(prefix []byte, idx int64) []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint64(b[24:], uint64(idx))
	return append(append([]byte{}, prefix...), b...)
}

func pubKeyAddr(prefix []byte, x, y *big.Int) []byte {
	xb := make([]byte, 32)
	yb := make([]byte, 32)
	x.FillBytes(xb)
	y.FillBytes(yb)
	key := append(append([]byte{}, prefix...), xb...)
	return append(key, yb...)
}

// ====== Meta: round-wide scalar state ======

// Meta bundles the round's scalar state — admin/operator identity, parameters, period,
// voting window, coordinator hash, commitments, counters, verifying keys, and delay
// records — into a single JSON blob. Index-addressed data (tree nodes, message hashes,
// results) and address-keyed sets (signups, nullifiers, used enc-pubkeys, whitelists) get
// their own namespaced keys below, matching spec §6's "one namespace per logical entity".
type Meta struct {
	Admin        string
	Operator     string
	FeeRecipient string

	Params      MaciParameters
	CircuitType CircuitType
	RoundInfo   RoundInfo
	VotingTime  VotingTime

	CoordinatorHash   *big.Int
	VoiceCreditAmount *big.Int

	CurrentStateCommitment      *big.Int
	CurrentTallyCommitment      *big.Int
	CurrentDeactivateCommitment *big.Int

	PreDeactivateRoot             *big.Int
	PreDeactivateCoordinatorHash  *big.Int

	NumSignUps        int64
	MsgChainLength    int64
	DmsgChainLength   int64
	ProcessedMsgCount int64
	ProcessedDmsgCount int64
	ProcessedUserCount int64

	FirstDmsgTimestamp int64

	Period Period

	MaxVoteOptions int64
	TotalResult    *big.Int
	TallyPenaltyRate int64

	VerifyingKeys VerifyingKeySet

	DelayRecords []DelayRecord

	AllFundsClaimed bool
}

// LoadMeta reads the round's meta blob, returning ErrNotFound if it has never been set.
func (s *Store) LoadMeta() (*Meta, error) {
	b, err := s.kv.Get(keyMeta)
	if err != nil {
		return nil, fmt.Errorf("round: load meta: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrNotFound
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("round: unmarshal meta: %w", err)
	}
	return &m, nil
}

// SaveMeta persists the round's meta blob.
func (s *Store) SaveMeta(m *Meta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("round: marshal meta: %w", err)
	}
	if err := s.kv.Set(keyMeta, b); err != nil {
		return fmt.Errorf("round: save meta: %w", err)
	}
	return nil
}

// ====== Index-addressed scalars ======

func (s *Store) getScalar(prefix []byte, idx int64) (*big.Int, bool, error) {
	b, err := s.kv.Get(u256Key(prefix, idx))
	if err != nil {
		return nil, false, fmt.Errorf("round: get scalar: %w", err)
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	return new(big.Int).SetBytes(b), true, nil
}

func (s *Store) setScalar(prefix []byte, idx int64, v *big.Int) error {
	buf := make([]byte, 32)
	v.FillBytes(buf)
	if err := s.kv.Set(u256Key(prefix, idx), buf); err != nil {
		return fmt.Errorf("round: set scalar: %w", err)
	}
	return nil
}

// NodeAt / SetNodeAt address the state tree's persisted leaf nodes (the in-memory
// merkle.QuinaryTree is the working structure; Store persists only its leaves, which
// NewMachine reloads to rebuild the tree's internal nodes after a restart).
func (s *Store) NodeAt(idx int64) (*big.Int, bool, error) { return s.getScalar(prefixNode, idx) }
func (s *Store) SetNodeAt(idx int64, v *big.Int) error    { return s.setScalar(prefixNode, idx, v) }

func (s *Store) DNodeAt(idx int64) (*big.Int, bool, error) { return s.getScalar(prefixDNode, idx) }
func (s *Store) SetDNodeAt(idx int64, v *big.Int) error    { return s.setScalar(prefixDNode, idx, v) }

func (s *Store) MsgHashAt(idx int64) (*big.Int, bool, error) { return s.getScalar(prefixMsgHash, idx) }
func (s *Store) SetMsgHashAt(idx int64, v *big.Int) error    { return s.setScalar(prefixMsgHash, idx, v) }

func (s *Store) DmsgHashAt(idx int64) (*big.Int, bool, error) { return s.getScalar(prefixDmsgHash, idx) }
func (s *Store) SetDmsgHashAt(idx int64, v *big.Int) error    { return s.setScalar(prefixDmsgHash, idx, v) }

func (s *Store) StateRootByDmsgAt(idx int64) (*big.Int, bool, error) {
	return s.getScalar(prefixStateRootByDmsg, idx)
}
func (s *Store) SetStateRootByDmsgAt(idx int64, v *big.Int) error {
	return s.setScalar(prefixStateRootByDmsg, idx, v)
}

func (s *Store) ResultAt(idx int64) (*big.Int, bool, error) { return s.getScalar(prefixResult, idx) }
func (s *Store) SetResultAt(idx int64, v *big.Int) error    { return s.setScalar(prefixResult, idx, v) }

// ====== Sets / maps keyed by value ======

func (s *Store) has(key []byte) (bool, error) {
	b, err := s.kv.Get(key)
	if err != nil {
		return false, fmt.Errorf("round: has: %w", err)
	}
	return len(b) > 0, nil
}

func u256SetKey(prefix []byte, v *big.Int) []byte {
	buf := make([]byte, 32)
	v.FillBytes(buf)
	return append(append([]byte{}, prefix...), buf...)
}

// HasNullifier reports whether nullifier has already been consumed by add_new_key.
func (s *Store) HasNullifier(nullifier *big.Int) (bool, error) {
	return s.has(u256SetKey(prefixNullifier, nullifier))
}

// MarkNullifier records nullifier as spent.
func (s *Store) MarkNullifier(nullifier *big.Int) error {
	return s.kv.Set(u256SetKey(prefixNullifier, nullifier), []byte{1})
}

// HasUsedEncPubKey reports whether (x, y) has already been used as a message envelope key.
func (s *Store) HasUsedEncPubKey(x, y *big.Int) (bool, error) {
	return s.has(pubKeyAddr(prefixUsedEncKey, x, y))
}

// MarkUsedEncPubKey records (x, y) as a used envelope key.
func (s *Store) MarkUsedEncPubKey(x, y *big.Int) error {
	return s.kv.Set(pubKeyAddr(prefixUsedEncKey, x, y), []byte{1})
}

// SignupStateIndex returns the state-tree leaf index a pubkey signed up at, if any.
func (s *Store) SignupStateIndex(x, y *big.Int) (int64, bool, error) {
	b, err := s.kv.Get(pubKeyAddr(prefixSignuped, x, y))
	if err != nil {
		return 0, false, fmt.Errorf("round: signup lookup: %w", err)
	}
	if len(b) == 0 {
		return 0, false, nil
	}
	return int64(binary.BigEndian.Uint64(b)), true, nil
}

// SetSignupStateIndex records the state-tree leaf index a pubkey signed up at.
func (s *Store) SetSignupStateIndex(x, y *big.Int, idx int64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(idx))
	return s.kv.Set(pubKeyAddr(prefixSignuped, x, y), b)
}

// HasOracleWhitelistEntry reports whether a pubkey has already signed up via oracle mode.
func (s *Store) HasOracleWhitelistEntry(x, y *big.Int) (bool, error) {
	return s.has(pubKeyAddr(prefixOracleWL, x, y))
}

// SetOracleWhitelistEntry records a pubkey as having signed up via oracle mode.
func (s *Store) SetOracleWhitelistEntry(x, y *big.Int) error {
	return s.kv.Set(pubKeyAddr(prefixOracleWL, x, y), []byte{1})
}

// IsWhitelisted reports whether sender has been granted a traditional-signup slot; it stays
// true after the slot is used (see IsRegistered).
func (s *Store) IsWhitelisted(sender string) (bool, error) {
	return s.has(append(append([]byte{}, prefixWhitelist...), []byte("slot:"+sender)...))
}

// GrantWhitelistSlot grants sender a traditional-signup slot.
func (s *Store) GrantWhitelistSlot(sender string) error {
	return s.kv.Set(append(append([]byte{}, prefixWhitelist...), []byte("slot:"+sender)...), []byte{1})
}

// IsRegistered reports whether sender has already consumed their whitelist slot.
func (s *Store) IsRegistered(sender string) (bool, error) {
	return s.has(append(append([]byte{}, prefixWhitelist...), []byte("used:"+sender)...))
}

// MarkRegistered consumes sender's whitelist slot.
func (s *Store) MarkRegistered(sender string) error {
	return s.kv.Set(append(append([]byte{}, prefixWhitelist...), []byte("used:"+sender)...), []byte{1})
}

var keyUploadedDeactivateBatch = []byte("round:uploaded_deactivate_batch")

// SetUploadedDeactivateBatch persists the operator-staged plaintext deactivate-message
// batch (spec §4.3's off-chain-prover handoff), encoded as decimal-string rows so it
// round-trips through JSON without precision loss.
func (s *Store) SetUploadedDeactivateBatch(batch [][]*big.Int) error {
	rows := make([][]string, len(batch))
	for i, row := range batch {
		strs := make([]string, len(row))
		for j, v := range row {
			strs[j] = v.String()
		}
		rows[i] = strs
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("round: marshal uploaded deactivate batch: %w", err)
	}
	return s.kv.Set(keyUploadedDeactivateBatch, b)
}

// UploadedDeactivateBatch returns the most recently staged plaintext deactivate-message
// batch, if any.
func (s *Store) UploadedDeactivateBatch() ([][]*big.Int, bool, error) {
	b, err := s.kv.Get(keyUploadedDeactivateBatch)
	if err != nil {
		return nil, false, fmt.Errorf("round: load uploaded deactivate batch: %w", err)
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	var rows [][]string
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, false, fmt.Errorf("round: unmarshal uploaded deactivate batch: %w", err)
	}
	batch := make([][]*big.Int, len(rows))
	for i, row := range rows {
		vals := make([]*big.Int, len(row))
		for j, s := range row {
			v, ok := new(big.Int).SetString(s, 10)
			if !ok {
				return nil, false, fmt.Errorf("round: malformed uploaded deactivate batch entry %q", s)
			}
			vals[j] = v
		}
		batch[i] = vals
	}
	return batch, true, nil
}

// VoiceCreditBalance returns the remaining voice-credit balance for a signed-up pubkey.
func (s *Store) VoiceCreditBalance(x, y *big.Int) (*big.Int, bool, error) {
	b, err := s.kv.Get(pubKeyAddr(prefixVoiceCredit, x, y))
	if err != nil {
		return nil, false, fmt.Errorf("round: voice credit lookup: %w", err)
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	return new(big.Int).SetBytes(b), true, nil
}

// SetVoiceCreditBalance sets the remaining voice-credit balance for a signed-up pubkey.
func (s *Store) SetVoiceCreditBalance(x, y, balance *big.Int) error {
	buf := make([]byte, 32)
	balance.FillBytes(buf)
	return s.kv.Set(pubKeyAddr(prefixVoiceCredit, x, y), buf)
}
