package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

func TestAllocate_StartsAtFirstIDAndAdvances(t *testing.T) {
	l := New()
	assert.Equal(t, "1", l.Allocate())
	assert.Equal(t, "2", l.Allocate())
	assert.Equal(t, uint64(3), l.Next())
}

func TestPeek_IsDeterministic(t *testing.T) {
	l := New()
	l.Allocate()
	require.NoError(t, l.Retire("1"))

	first := l.Peek()
	second := l.Peek()
	assert.Equal(t, first, second)
	assert.Equal(t, first, l.Allocate())
}

func TestRetire(t *testing.T) {
	l := New()
	id := l.Allocate()

	require.NoError(t, l.Retire(id))
	assert.True(t, l.IsRetired(id))
	assert.False(t, l.IsActive(id))

	// idempotent
	require.NoError(t, l.Retire(id))

	err := l.Retire("99")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAllocate_SkipsRetiredAndActive(t *testing.T) {
	l, err := Restore([]string{"2"}, []string{"3", "5"}, 1)
	require.NoError(t, err)

	// cursor was moved past the highest known id
	assert.Equal(t, "6", l.Allocate())
}

func TestRestore_RejectsInconsistentState(t *testing.T) {
	_, err := Restore([]string{"1"}, []string{"1"}, 2)
	assert.Error(t, err)

	_, err = Restore([]string{"1", "1"}, nil, 2)
	assert.Error(t, err)

	_, err = Restore([]string{"abc"}, nil, 1)
	assert.Error(t, err)
}

func TestRestore_NeverRegressesCursor(t *testing.T) {
	l, err := Restore(nil, nil, 40)
	require.NoError(t, err)
	assert.Equal(t, "40", l.Peek())
}

func TestAllocate_NeverReusesIDs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	l := New()
	seen := map[string]bool{}
	var live []string

	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			k := rng.Intn(len(live))
			require.NoError(t, l.Retire(live[k]))
			live = append(live[:k], live[k+1:]...)
			continue
		}
		id := l.Allocate()
		require.False(t, seen[id], "id %s handed out twice", id)
		seen[id] = true
		live = append(live, id)

		// survive a round trip through persistence
		if i%100 == 0 {
			restored, err := Restore(sortedIDs(l.active), l.Retired(), l.Next())
			require.NoError(t, err)
			l = restored
		}
	}
}

func TestClone_IsIndependent(t *testing.T) {
	l := New()
	l.Allocate()
	c := l.Clone()
	c.Allocate()
	assert.Equal(t, []string{"1"}, sortedIDs(l.active))
	assert.Equal(t, []string{"1", "2"}, sortedIDs(c.active))
}

func TestFromState_AndSnapshot(t *testing.T) {
	state := &model.LedgerState{
		Devices:       []*model.DeviceRecord{{HueID: "4", Name: "Lamp"}},
		Retired:       []string{"1", "2"},
		NextCandidate: 3,
	}
	l, err := FromState(state)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), l.Next())

	snap := l.Snapshot(state.Devices)
	assert.Equal(t, []string{"1", "2"}, snap.Retired)
	assert.Equal(t, uint64(5), snap.NextCandidate)
	snap.Devices[0].Name = "changed"
	assert.Equal(t, "Lamp", state.Devices[0].Name)

	empty, err := FromState(nil)
	require.NoError(t, err)
	assert.Equal(t, "1", empty.Peek())
}
