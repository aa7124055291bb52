package grid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/service/schedule"
	"github.com/jwalitptl/clinic-schedule/internal/service/sloteditor"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

type memStore struct {
	week  model.WeeklySchedule
	state map[model.Weekday]schedule.SyncState
	sets  int
}

func newMemStore() *memStore {
	return &memStore{
		week:  model.NormalizeWeek(model.OwnerClinic, uuid.New(), nil),
		state: map[model.Weekday]schedule.SyncState{},
	}
}

func (m *memStore) Week() model.WeeklySchedule { return m.week }

func (m *memStore) GetDay(w model.Weekday) (model.DaySchedule, error) {
	if !w.Valid() {
		return model.DaySchedule{}, schedule.ErrInvalidWeekday
	}
	return m.week[w].Clone(), nil
}

func (m *memStore) SetDay(w model.Weekday, d model.DaySchedule) error {
	m.week[w] = d.Clone()
	m.state[w] = schedule.SyncPending
	m.sets++
	return nil
}

func (m *memStore) DayState(w model.Weekday) schedule.SyncState {
	if s, ok := m.state[w]; ok {
		return s
	}
	return schedule.SyncClean
}

func (m *memStore) open(w model.Weekday, slots ...timeslot.Slot) {
	m.week[w].Status = model.DayOpen
	m.week[w].Slots = slots
}

// capture records the params and answers like the API does.
func capture(got *sloteditor.Params, sub sloteditor.Submission) sloteditor.Opener {
	return func(p sloteditor.Params) error {
		*got = p
		return sub.Opener()(p)
	}
}

func TestColumns(t *testing.T) {
	m := newMemStore()
	m.open(model.Tuesday, timeslot.Slot{Start: "10:00", End: "12:00"}, timeslot.Slot{Start: "09:00", End: "10:30"})
	m.state[model.Tuesday] = schedule.SyncSaving

	cols := Columns(m)
	require.Len(t, cols, model.DaysPerWeek)
	assert.Equal(t, "Monday", cols[0].Label)
	assert.False(t, cols[0].Open)
	assert.False(t, cols[0].Saving)

	tue := cols[model.Tuesday]
	assert.True(t, tue.Open)
	assert.True(t, tue.HasOverlap)
	assert.True(t, tue.Saving)
	assert.Equal(t, "09:00", tue.Slots[0].Start)
}

func TestAddSlot_PrefillAndMerge(t *testing.T) {
	m := newMemStore()
	m.open(model.Monday, timeslot.Slot{Start: "13:00", End: "15:00"}, timeslot.Slot{Start: "08:00", End: "12:00"})

	var p sloteditor.Params
	require.NoError(t, AddSlot(m, model.Monday, capture(&p, sloteditor.Submission{})))

	assert.False(t, p.Editing)
	assert.Equal(t, "Monday", p.DayLabel)
	assert.Equal(t, timeslot.Slot{Start: "15:00", End: "17:00"}, p.Initial)
	assert.Equal(t, []timeslot.Slot{
		{Start: "08:00", End: "12:00"},
		{Start: "13:00", End: "15:00"},
		{Start: "15:00", End: "17:00"},
	}, m.week[model.Monday].Slots)
}

func TestAddSlot_EmptyDayStartsAtNine(t *testing.T) {
	m := newMemStore()
	m.open(model.Friday)

	var p sloteditor.Params
	require.NoError(t, AddSlot(m, model.Friday, capture(&p, sloteditor.Submission{})))
	assert.Equal(t, timeslot.Slot{Start: "09:00", End: "11:00"}, p.Initial)
}

func TestAddSlot_RejectsClosedDayAndOverlap(t *testing.T) {
	m := newMemStore()
	err := AddSlot(m, model.Monday, sloteditor.Submission{}.Opener())
	assert.ErrorIs(t, err, ErrDayNotOpen)

	m.open(model.Monday, timeslot.Slot{Start: "09:00", End: "12:00"})
	err = AddSlot(m, model.Monday, sloteditor.Submission{Start: "11:00", End: "13:00"}.Opener())
	assert.ErrorIs(t, err, sloteditor.ErrInvalidSlot)
	assert.Zero(t, m.sets)
}

func TestEditSlot(t *testing.T) {
	m := newMemStore()
	m.open(model.Wednesday, timeslot.Slot{Start: "14:00", End: "16:00"}, timeslot.Slot{Start: "09:00", End: "11:00"})

	var p sloteditor.Params
	require.NoError(t, EditSlot(m, model.Wednesday, 1, capture(&p, sloteditor.Submission{Start: "13:00"})))
	assert.True(t, p.Editing)
	assert.Equal(t, timeslot.Slot{Start: "14:00", End: "16:00"}, p.Initial)
	assert.Equal(t, []timeslot.Slot{{Start: "09:00", End: "11:00"}}, p.ExistingSlots)
	assert.Equal(t, []timeslot.Slot{
		{Start: "09:00", End: "11:00"},
		{Start: "13:00", End: "16:00"},
	}, m.week[model.Wednesday].Slots)

	require.NoError(t, EditSlot(m, model.Wednesday, 0, sloteditor.Submission{Delete: true}.Opener()))
	assert.Equal(t, []timeslot.Slot{{Start: "13:00", End: "16:00"}}, m.week[model.Wednesday].Slots)
}

func TestEditSlot_BadIndex(t *testing.T) {
	m := newMemStore()
	m.open(model.Monday, timeslot.Slot{Start: "09:00", End: "11:00"})

	assert.ErrorIs(t, EditSlot(m, model.Monday, 1, sloteditor.Submission{}.Opener()), ErrSlotNotFound)
	assert.ErrorIs(t, EditSlot(m, model.Monday, -1, sloteditor.Submission{}.Opener()), ErrSlotNotFound)
	assert.ErrorIs(t, EditSlot(m, model.Monday, 0, nil), ErrNoEditorGiven)
	assert.ErrorIs(t, EditSlot(m, model.Weekday(9), 0, sloteditor.Submission{}.Opener()), schedule.ErrInvalidWeekday)
}
