// Package ledger assigns hue ids and remembers every id that was ever
// retired so that none is handed out twice.
package ledger

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// FirstID is the first candidate of a fresh ledger.
const FirstID uint64 = 1

// Ledger is not safe for concurrent use; the registry serializes access.
type Ledger struct {
	active  map[string]struct{}
	retired map[string]struct{}
	next    uint64
}

// New returns an empty ledger starting at FirstID.
func New() *Ledger {
	return &Ledger{
		active:  make(map[string]struct{}),
		retired: make(map[string]struct{}),
		next:    FirstID,
	}
}

// Restore builds a ledger from persisted ids. The cursor is moved past the
// highest known id even if the stored cursor is lower.
func Restore(active, retired []string, next uint64) (*Ledger, error) {
	l := New()
	if next > l.next {
		l.next = next
	}
	for _, id := range retired {
		n, err := parseID(id)
		if err != nil {
			return nil, err
		}
		l.retired[id] = struct{}{}
		l.bump(n)
	}
	for _, id := range active {
		n, err := parseID(id)
		if err != nil {
			return nil, err
		}
		if _, ok := l.retired[id]; ok {
			return nil, fmt.Errorf("hue id %s is both active and retired", id)
		}
		if _, ok := l.active[id]; ok {
			return nil, fmt.Errorf("hue id %s is used by more than one device", id)
		}
		l.active[id] = struct{}{}
		l.bump(n)
	}
	return l, nil
}

// Peek returns the id the next Allocate call will return without changing
// the ledger.
func (l *Ledger) Peek() string {
	id, _ := l.candidate()
	return id
}

// Allocate hands out the smallest free id at or above the cursor and
// advances the cursor past it.
func (l *Ledger) Allocate() string {
	id, n := l.candidate()
	l.active[id] = struct{}{}
	l.next = n + 1
	return id
}

// Retire permanently removes id from the allocatable pool.
func (l *Ledger) Retire(id string) error {
	if _, ok := l.retired[id]; ok {
		return nil
	}
	if _, ok := l.active[id]; !ok {
		return &model.NotFoundError{ID: id}
	}
	delete(l.active, id)
	l.retired[id] = struct{}{}
	return nil
}

// IsActive reports whether id currently belongs to a device.
func (l *Ledger) IsActive(id string) bool {
	_, ok := l.active[id]
	return ok
}

// IsRetired reports whether id was retired.
func (l *Ledger) IsRetired(id string) bool {
	_, ok := l.retired[id]
	return ok
}

// Next returns the cursor.
func (l *Ledger) Next() uint64 {
	return l.next
}

// Retired returns the retired ids in numeric order.
func (l *Ledger) Retired() []string {
	return sortedIDs(l.retired)
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		active:  make(map[string]struct{}, len(l.active)),
		retired: make(map[string]struct{}, len(l.retired)),
		next:    l.next,
	}
	for id := range l.active {
		c.active[id] = struct{}{}
	}
	for id := range l.retired {
		c.retired[id] = struct{}{}
	}
	return c
}

func (l *Ledger) candidate() (string, uint64) {
	for n := l.next; ; n++ {
		id := strconv.FormatUint(n, 10)
		if _, used := l.active[id]; used {
			continue
		}
		if _, gone := l.retired[id]; gone {
			continue
		}
		return id, n
	}
}

func (l *Ledger) bump(n uint64) {
	if n >= l.next {
		l.next = n + 1
	}
}

func parseID(id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("malformed hue id %q", id)
	}
	return n, nil
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.ParseUint(out[i], 10, 64)
		b, _ := strconv.ParseUint(out[j], 10, 64)
		return a < b
	})
	return out
}

// FromState restores a ledger from a persisted snapshot.
func FromState(s *model.LedgerState) (*Ledger, error) {
	if s == nil {
		return New(), nil
	}
	active := make([]string, 0, len(s.Devices))
	for _, d := range s.Devices {
		active = append(active, d.HueID)
	}
	return Restore(active, s.Retired, s.NextCandidate)
}

// Snapshot renders the ledger together with the device records it tracks.
func (l *Ledger) Snapshot(devices []*model.DeviceRecord) *model.LedgerState {
	s := &model.LedgerState{
		Devices:       make([]*model.DeviceRecord, 0, len(devices)),
		Retired:       l.Retired(),
		NextCandidate: l.next,
	}
	for _, d := range devices {
		s.Devices = append(s.Devices, d.Clone())
	}
	return s
}
