package round

import (
	"math/big"

	"github.com/dorafactory/amaci-core/pkg/poseidon"
)

// maxDeactivateMessages is 5^(state_tree_depth+2) - 1, the deactivate-message chain's
// capacity (spec §4.3), mirroring the reference contract's two-extra-level allowance on top
// of the state tree's own depth.
func maxDeactivateMessages(stateTreeDepth int) *big.Int {
	n := pow5(stateTreeDepth + 2)
	return new(big.Int).Sub(big.NewInt(n), big.NewInt(1))
}

// validEncPubKey rejects the sentinel "no encryption" key (0, 1) and any out-of-field
// coordinate (spec §4.3's admission guard, shared by publish_message and
// publish_deactivate_message).
func validEncPubKey(x, y *big.Int) bool {
	if x.Sign() == 0 && y.Cmp(big.NewInt(1)) == 0 {
		return false
	}
	return fieldValid(x) && fieldValid(y)
}

// hashMessageAndEncPubKey folds a published message and its envelope key into the running
// message-chain hash: Hash2(Hash5(message[0..5]), Hash5(message[5], message[6], enc.x, enc.y,
// prevHash)). Grounded on contract.rs's hash_message_and_enc_pub_key.
func hashMessageAndEncPubKey(msg Message, encX, encY, prevHash *big.Int) *big.Int {
	mHash := poseidon.Hash5([5]*big.Int{msg[0], msg[1], msg[2], msg[3], msg[4]})
	nHash := poseidon.Hash5([5]*big.Int{msg[5], msg[6], encX, encY, prevHash})
	return poseidon.Hash2(mHash, nHash)
}

// PublishMessage appends one encrypted vote message to the message chain (spec §4.3). Guard
// order: phase → admission (enc-pubkey validity, replay). Grounded on
// contract.rs's execute_publish_message.
func (m *Machine) PublishMessage(msg Message, encPubKey PubKey) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if currentPeriod(meta, m.Now()) != PeriodVoting {
		return ErrPeriod
	}
	if !validEncPubKey(encPubKey.X, encPubKey.Y) {
		return nil // reference contract swallows an invalid enc_pub_key as a no-op event
	}

	used, err := m.Store.HasUsedEncPubKey(encPubKey.X, encPubKey.Y)
	if err != nil {
		return err
	}
	if used {
		return ErrEncPubKeyAlreadyUsed
	}
	if err := m.Store.MarkUsedEncPubKey(encPubKey.X, encPubKey.Y); err != nil {
		return err
	}

	prevHash, _, err := m.Store.MsgHashAt(meta.MsgChainLength)
	if err != nil {
		return err
	}
	if prevHash == nil {
		prevHash = big.NewInt(0)
	}
	newHash := hashMessageAndEncPubKey(msg, encPubKey.X, encPubKey.Y, prevHash)
	if err := m.Store.SetMsgHashAt(meta.MsgChainLength+1, newHash); err != nil {
		return err
	}

	meta.MsgChainLength++
	return m.Store.SaveMeta(meta)
}

// PublishMessageBatch publishes a batch of messages in a single call, validated and checked
// for phase once for the whole batch (spec §4.3). Any message whose enc_pub_key is invalid
// is skipped rather than aborting the batch, matching contract.rs's
// execute_publish_message_batch. An already-used enc_pub_key still aborts the whole call.
func (m *Machine) PublishMessageBatch(msgs []Message, encPubKeys []PubKey) error {
	if len(msgs) != len(encPubKeys) {
		return ErrBatchLengthMismatch
	}
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if currentPeriod(meta, m.Now()) != PeriodVoting {
		return ErrPeriod
	}

	chainLength := meta.MsgChainLength
	for i, msg := range msgs {
		enc := encPubKeys[i]
		if !validEncPubKey(enc.X, enc.Y) {
			continue
		}
		used, err := m.Store.HasUsedEncPubKey(enc.X, enc.Y)
		if err != nil {
			return err
		}
		if used {
			return ErrEncPubKeyAlreadyUsed
		}
		if err := m.Store.MarkUsedEncPubKey(enc.X, enc.Y); err != nil {
			return err
		}

		prevHash, _, err := m.Store.MsgHashAt(chainLength)
		if err != nil {
			return err
		}
		if prevHash == nil {
			prevHash = big.NewInt(0)
		}
		newHash := hashMessageAndEncPubKey(msg, enc.X, enc.Y, prevHash)
		if err := m.Store.SetMsgHashAt(chainLength+1, newHash); err != nil {
			return err
		}
		chainLength++
	}

	meta.MsgChainLength = chainLength
	return m.Store.SaveMeta(meta)
}

// PublishDeactivateMessage appends one deactivate-request message to the deactivate-message
// chain, snapshotting the current state-tree root alongside it so a later
// process_deactivate_message batch can verify against the state as of this message (spec
// §4.3). The deactivate-message chain has its own capacity, 5^(state_tree_depth+2)-1,
// distinct from the state tree's own 5^state_tree_depth. Grounded on contract.rs's
// execute_publish_deactivate_message.
func (m *Machine) PublishDeactivateMessage(msg Message, encPubKey PubKey) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if currentPeriod(meta, m.Now()) != PeriodVoting {
		return ErrPeriod
	}

	maxDmsgs := maxDeactivateMessages(meta.Params.StateTreeDepth)
	if new(big.Int).Add(big.NewInt(meta.DmsgChainLength), big.NewInt(1)).Cmp(maxDmsgs) > 0 {
		return ErrMaxDeactivateMsgsReached
	}
	if !validEncPubKey(encPubKey.X, encPubKey.Y) {
		return nil
	}

	if meta.ProcessedDmsgCount == meta.DmsgChainLength {
		meta.FirstDmsgTimestamp = m.Now()
	}

	prevHash, _, err := m.Store.DmsgHashAt(meta.DmsgChainLength)
	if err != nil {
		return err
	}
	if prevHash == nil {
		prevHash = big.NewInt(0)
	}
	mHash := poseidon.Hash5([5]*big.Int{msg[0], msg[1], msg[2], msg[3], msg[4]})
	nHash := poseidon.Hash5([5]*big.Int{msg[5], msg[6], encPubKey.X, encPubKey.Y, prevHash})
	newHash := poseidon.Hash2(mHash, nHash)

	if err := m.Store.SetDmsgHashAt(meta.DmsgChainLength+1, newHash); err != nil {
		return err
	}
	if err := m.Store.SetStateRootByDmsgAt(meta.DmsgChainLength+1, m.stateTree.Root()); err != nil {
		return err
	}

	meta.DmsgChainLength++
	return m.Store.SaveMeta(meta)
}

// UploadDeactivateMessage lets the round operator stage the plaintext deactivate-message
// batch the off-chain prover will consume to produce the next process_deactivate_message
// proof. It is bookkeeping only — it does not touch the deactivate-message chain or tree —
// so it is kept separate from PublishDeactivateMessage. Grounded on contract.rs's
// execute_upload_deactivate_message.
func (m *Machine) UploadDeactivateMessage(sender string, batch [][]*big.Int) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if sender != meta.Operator {
		return ErrUnauthorized
	}
	return m.Store.SetUploadedDeactivateBatch(batch)
}
