package transition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-notifier/internal/model"
)

// noPrev marks a first sighting in the table below.
const noPrev model.Status = ""

func snap(id string, status model.Status) model.Snapshot {
	return model.Snapshot{ID: id, Name: "Machine " + id, Status: status, Cycle: model.UnknownCycle}
}

func TestDetect(t *testing.T) {
	testCases := []struct {
		prev     model.Status
		cur      model.Status
		finished bool
	}{
		{noPrev, model.StatusAvailable, false},
		{noPrev, model.StatusInUse, false},
		{noPrev, model.StatusFinished, true},
		{noPrev, model.StatusOutOfOrder, false},
		{noPrev, model.StatusUnknown, false},
		{model.StatusAvailable, model.StatusAvailable, false},
		{model.StatusAvailable, model.StatusInUse, false},
		{model.StatusAvailable, model.StatusFinished, true},
		{model.StatusAvailable, model.StatusOutOfOrder, false},
		{model.StatusAvailable, model.StatusUnknown, false},
		{model.StatusInUse, model.StatusAvailable, true},
		{model.StatusInUse, model.StatusInUse, false},
		{model.StatusInUse, model.StatusFinished, true},
		{model.StatusInUse, model.StatusOutOfOrder, false},
		{model.StatusInUse, model.StatusUnknown, false},
		{model.StatusFinished, model.StatusAvailable, false},
		{model.StatusFinished, model.StatusInUse, false},
		{model.StatusFinished, model.StatusFinished, true},
		{model.StatusFinished, model.StatusOutOfOrder, false},
		{model.StatusFinished, model.StatusUnknown, false},
		{model.StatusOutOfOrder, model.StatusAvailable, false},
		{model.StatusOutOfOrder, model.StatusInUse, false},
		{model.StatusOutOfOrder, model.StatusFinished, true},
		{model.StatusOutOfOrder, model.StatusOutOfOrder, false},
		{model.StatusOutOfOrder, model.StatusUnknown, false},
		{model.StatusUnknown, model.StatusAvailable, false},
		{model.StatusUnknown, model.StatusInUse, false},
		{model.StatusUnknown, model.StatusFinished, true},
		{model.StatusUnknown, model.StatusOutOfOrder, false},
		{model.StatusUnknown, model.StatusUnknown, false},
	}
	require.Len(t, testCases, 30)

	for _, tc := range testCases {
		prevName := string(tc.prev)
		if tc.prev == noPrev {
			prevName = "none"
		}
		t.Run(fmt.Sprintf("%s to %s", prevName, tc.cur), func(t *testing.T) {
			var prev *model.Snapshot
			if tc.prev != noPrev {
				p := snap("A1", tc.prev)
				prev = &p
			}
			cur := snap("A1", tc.cur)

			event := Detect(prev, cur)

			assert.Equal(t, tc.finished, event.Finished)
			assert.Equal(t, cur, event.Current)
			assert.Equal(t, prev, event.Previous)
		})
	}
}

func TestDetect_DoesNotMutateInputs(t *testing.T) {
	prev := snap("B2", model.StatusInUse)
	prevCopy := prev
	cur := snap("B2", model.StatusAvailable)

	event := Detect(&prev, cur)

	assert.True(t, event.Finished)
	assert.Equal(t, prevCopy, prev)
}

func TestDiff(t *testing.T) {
	prev := NewGeneration([]model.Snapshot{
		snap("A1", model.StatusInUse),
		snap("A2", model.StatusInUse),
		snap("A3", model.StatusAvailable),
	})

	t.Run("events compare against the previous generation", func(t *testing.T) {
		events, next := Diff(prev, []model.Snapshot{
			snap("A1", model.StatusAvailable),
			snap("A2", model.StatusInUse),
			snap("A4", model.StatusFinished),
		}, nil)

		require.Len(t, events, 3)
		assert.True(t, events[0].Finished, "A1 went from IN_USE to AVAILABLE")
		assert.False(t, events[1].Finished, "A2 is still running")
		assert.True(t, events[2].Finished, "A4 is first seen as FINISHED")
		assert.Nil(t, events[2].Previous)

		assert.Equal(t, 3, next.Len())
		_, ok := next.Get("A3")
		assert.False(t, ok, "machines missing from the feed are dropped")
	})

	t.Run("previous generation is left untouched", func(t *testing.T) {
		Diff(prev, []model.Snapshot{snap("A1", model.StatusFinished)}, nil)

		s, ok := prev.Get("A1")
		require.True(t, ok)
		assert.Equal(t, model.StatusInUse, s.Status)
		assert.Equal(t, 3, prev.Len())
	})

	t.Run("skipped machines are carried over without an event", func(t *testing.T) {
		events, next := Diff(prev, []model.Snapshot{snap("A3", model.StatusAvailable)}, []string{"A1", "A9"})

		require.Len(t, events, 1)
		assert.Equal(t, "A3", events[0].Current.ID)

		carried, ok := next.Get("A1")
		require.True(t, ok)
		assert.Equal(t, model.StatusInUse, carried.Status)
		_, ok = next.Get("A9")
		assert.False(t, ok, "an unknown skipped machine is not invented")
		assert.Equal(t, 2, next.Len())
	})

	t.Run("nil previous generation means every machine is new", func(t *testing.T) {
		events, next := Diff(nil, []model.Snapshot{
			snap("C1", model.StatusInUse),
			snap("C2", model.StatusFinished),
		}, nil)

		require.Len(t, events, 2)
		assert.False(t, events[0].Finished)
		assert.True(t, events[1].Finished)
		assert.Equal(t, []model.Snapshot{snap("C1", model.StatusInUse), snap("C2", model.StatusFinished)}, next.Snapshots())
	})
}
