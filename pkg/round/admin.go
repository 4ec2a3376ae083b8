package round

// SetRoundInfo lets the admin update the human-facing round metadata. Permitted at any
// time (the reference contract allows this outside the Pending/pre-voting guard other
// admin setters enforce).
func (m *Machine) SetRoundInfo(sender string, info RoundInfo) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if sender != meta.Admin {
		return ErrUnauthorized
	}
	if info.Title == "" {
		return ErrTitleIsEmpty
	}
	meta.RoundInfo = info
	return m.Store.SaveMeta(meta)
}

// SetWhitelist installs the traditional (non-oracle) signup whitelist. Only permitted
// before voting starts. Each call grants slots to addrs in addition to any granted by
// earlier calls; it is not limited to a single call.
func (m *Machine) SetWhitelist(sender string, addrs []string, maxVoters int64) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if sender != meta.Admin {
		return ErrUnauthorized
	}
	if currentPeriod(meta, m.Now()) != PeriodPending {
		return ErrPeriod
	}
	if maxVoters > meta.Params.MaxVoters() {
		return ErrMaxVoterExceeded
	}
	for _, a := range addrs {
		if err := m.Store.GrantWhitelistSlot(a); err != nil {
			return err
		}
	}
	return nil
}

// SetVoteOptionsMap records the round's vote-option count as max_vote_options, bounded by
// 5^vote_option_tree_depth; option labels are not stored. Permitted only before voting
// starts.
func (m *Machine) SetVoteOptionsMap(sender string, maxOptions int64) error {
	meta, err := m.Store.LoadMeta()
	if err != nil {
		return err
	}
	if sender != meta.Admin {
		return ErrUnauthorized
	}
	if currentPeriod(meta, m.Now()) != PeriodPending {
		return ErrPeriod
	}
	if maxOptions > meta.Params.MaxOptions() {
		return ErrMaxVoteOptionsExceeded
	}
	meta.MaxVoteOptions = maxOptions
	return m.Store.SaveMeta(meta)
}
