package model

// LedgerState is the durable form of the identity ledger and device registry.
type LedgerState struct {
	Devices       []*DeviceRecord `json:"devices"`
	Retired       []string        `json:"retired_ids"`
	NextCandidate uint64          `json:"next_id_counter"`
}

// Clone returns a deep copy.
func (s *LedgerState) Clone() *LedgerState {
	if s == nil {
		return nil
	}
	c := &LedgerState{
		Devices:       make([]*DeviceRecord, 0, len(s.Devices)),
		Retired:       append([]string(nil), s.Retired...),
		NextCandidate: s.NextCandidate,
	}
	for _, d := range s.Devices {
		c.Devices = append(c.Devices, d.Clone())
	}
	return c
}
