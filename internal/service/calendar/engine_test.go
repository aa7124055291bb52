package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
)

var monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func sampleConsultations() []model.Consultation {
	return []model.Consultation{
		{
			ID: "c1", Date: "2024-03-04", HeureDebut: "09:00", HeureFin: "09:30",
			Status:  model.ConsultationConfirmed,
			Patient: &model.PatientRef{PersonRef: model.PersonRef{FirstName: "Ada", LastName: "Lovelace"}},
		},
		{
			ID: "c2", Date: "2024-03-05", Start: "14:00", Duration: intPtr(20),
			Status:  model.ConsultationCancelled,
			Patient: &model.PatientRef{User: &model.PersonRef{Email: "grace@example.com"}},
		},
		{ID: "c3", Date: "2024-03-18", Start: "10:00"},
	}
}

// y for a minute offset from the top of the grid
func yAt(g Geometry, minutes int) float64 { return float64(minutes) * g.PxPerMinute() }

func TestEngine_DropConsultationMovesOnlyThatRecord(t *testing.T) {
	input := sampleConsultations()
	before := sampleConsultations()

	var got []model.Consultation
	calls := 0
	m := metrics.New("test")
	e := NewEngine(Options{
		WeekStart:     monday,
		Consultations: input,
		OnChange:      func(cs []model.Consultation) { got = cs; calls++ },
		Metrics:       m,
	})

	require.NoError(t, e.StartDrag("c1"))
	changed, err := e.MoveDrag(2, yAt(e.Geometry(), 125))
	require.NoError(t, err)
	assert.True(t, changed)

	drop, err := e.EndDrag(2, yAt(e.Geometry(), 125))
	require.NoError(t, err)
	assert.Equal(t, 2, drop.DayIndex)
	assert.Equal(t, "10:00", drop.Start)
	assert.Equal(t, "2024-03-06", drop.Date)

	require.Equal(t, 1, calls)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-03-06", got[0].Date)
	assert.Equal(t, "10:00", got[0].HeureDebut)
	assert.Equal(t, "10:30", got[0].HeureFin)
	assert.Empty(t, got[0].Start)
	assert.Equal(t, before[1], got[1])
	assert.Equal(t, before[2], got[2])

	// the caller's slice is left alone
	assert.Equal(t, before, input)
	assert.False(t, e.Dragging())
	assert.Equal(t, 1.0, metrics.CounterValue(m.DragCommits.WithLabelValues(VariantConsultation)))
}

func TestEngine_DropProvisionalOnlyTouchesDraft(t *testing.T) {
	draft := &model.Draft{Date: "2024-03-05", Start: "11:00", Duration: 30, Title: "Checkup"}
	var drafted *model.Draft
	changeCalls := 0
	e := NewEngine(Options{
		WeekStart:     monday,
		Consultations: sampleConsultations(),
		Draft:         draft,
		OnChange:      func([]model.Consultation) { changeCalls++ },
		OnDraftChange: func(d model.Draft) { drafted = &d },
	})

	require.NoError(t, e.StartDrag(model.ProvisionalID))
	g, ok := e.Ghost()
	require.True(t, ok)
	assert.Equal(t, "dashed", g.Border)
	assert.Equal(t, "11:30", g.End)

	drop, err := e.EndDrag(4, yAt(e.Geometry(), 60))
	require.NoError(t, err)
	assert.True(t, drop.Provisional)
	assert.Zero(t, changeCalls)

	require.NotNil(t, drafted)
	assert.Equal(t, model.Draft{Date: "2024-03-08", Start: "09:00", Duration: 30, Title: "Checkup"}, *drafted)
	// the input draft is not mutated
	assert.Equal(t, "11:00", draft.Start)
}

func TestEngine_MoveEmitsOnlyOnChange(t *testing.T) {
	e := NewEngine(Options{WeekStart: monday, Consultations: sampleConsultations()})
	g := e.Geometry()
	require.NoError(t, e.StartDrag("c1"))

	changed, err := e.MoveDrag(0, yAt(g, 60))
	require.NoError(t, err)
	assert.False(t, changed, "09:00 on monday is where c1 already is")

	changed, _ = e.MoveDrag(0, yAt(g, 66))
	assert.False(t, changed, "66 snaps back to 60")

	changed, _ = e.MoveDrag(0, yAt(g, 68))
	assert.True(t, changed)
	ghost, _ := e.Ghost()
	assert.Equal(t, "09:15", ghost.Appointment.Start)
	assert.Equal(t, "09:45", ghost.End)
	assert.Equal(t, "solid", ghost.Border)

	changed, _ = e.MoveDrag(9, yAt(g, 200))
	assert.False(t, changed)
}

func TestEngine_MoveClampsToGrid(t *testing.T) {
	e := NewEngine(Options{WeekStart: monday, Consultations: sampleConsultations()})
	g := e.Geometry()
	require.NoError(t, e.StartDrag("c1"))

	_, _ = e.MoveDrag(1, -50)
	ghost, _ := e.Ghost()
	assert.Equal(t, "08:00", ghost.Appointment.Start)

	_, _ = e.MoveDrag(1, g.Height()+100)
	ghost, _ = e.Ghost()
	assert.Equal(t, "17:30", ghost.Appointment.Start)
}

func TestEngine_CancelAndErrors(t *testing.T) {
	var calls int
	input := sampleConsultations()
	e := NewEngine(Options{
		WeekStart:     monday,
		Consultations: input,
		OnChange:      func([]model.Consultation) { calls++ },
	})

	_, err := e.MoveDrag(0, 0)
	assert.ErrorIs(t, err, ErrNoActiveDrag)
	_, err = e.EndDrag(0, 0)
	assert.ErrorIs(t, err, ErrNoActiveDrag)

	assert.ErrorIs(t, e.StartDrag("c3"), ErrUnknownAppointment, "c3 is in another week")

	require.NoError(t, e.StartDrag("c2"))
	assert.ErrorIs(t, e.StartDrag("c1"), ErrDragInProgress)
	_, _ = e.MoveDrag(3, 100)
	e.CancelDrag()
	assert.False(t, e.Dragging())
	_, ok := e.Ghost()
	assert.False(t, ok)

	require.NoError(t, e.StartDrag("c2"))
	_, err = e.EndDrag(7, 0)
	assert.ErrorIs(t, err, ErrOutsideGrid)
	assert.False(t, e.Dragging())

	assert.Zero(t, calls)
	assert.Equal(t, sampleConsultations(), input)
}

func TestEngine_WeekNavigation(t *testing.T) {
	e := NewEngine(Options{WeekStart: monday.AddDate(0, 0, 2), Consultations: sampleConsultations()})
	assert.Equal(t, "2024-03-04", e.Dates()[0])
	assert.Equal(t, "2024-03-10", e.Dates()[6])
	require.NoError(t, e.StartDrag("c1"))

	e.NextWeek()
	e.NextWeek()
	assert.False(t, e.Dragging())
	assert.Equal(t, "2024-03-18", e.Dates()[0])
	appts := e.Appointments()
	require.Len(t, appts, 1)
	assert.Equal(t, "c3", appts[0].ID)

	e.PrevWeek()
	assert.Equal(t, "2024-03-11", e.Dates()[0])
	assert.Empty(t, e.Appointments())
}
