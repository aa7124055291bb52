package emergency

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/internal/service/sloteditor"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

func TestBlock_DaysHiddenInAlwaysMode(t *testing.T) {
	b := NewBlock(model.DefaultEmergencyConfig(uuid.New()), nil)
	assert.Empty(t, b.Days())

	require.NoError(t, b.SetMode(model.EmergencySpecific))
	days := b.Days()
	require.Len(t, days, 7)
	assert.Equal(t, model.DayKey("mon"), days[0].Key)
	assert.Equal(t, "Sunday", days[6].Label)

	assert.ErrorIs(t, b.SetMode("sometimes"), ErrInvalidMode)
}

func TestBlock_FillAllDaysKeepsExisting(t *testing.T) {
	cfg := model.DefaultEmergencyConfig(uuid.New())
	cfg.Slots["wed"] = []timeslot.Slot{{Start: "20:00", End: "22:00"}}

	var changes int
	b := NewBlock(cfg, func(model.EmergencyConfig) { changes++ })
	b.FillAllDays()

	got := b.Config().Slots
	assert.Equal(t, 1, changes)
	assert.Len(t, got, 7)
	assert.Equal(t, []timeslot.Slot{FillSlot}, got["mon"])
	assert.Equal(t, []timeslot.Slot{{Start: "20:00", End: "22:00"}}, got["wed"])
	// the caller's value is not aliased
	assert.Len(t, cfg.Slots, 1)
}

func TestBlock_SlotEditing(t *testing.T) {
	var last model.EmergencyConfig
	b := NewBlock(model.DefaultEmergencyConfig(uuid.New()), func(c model.EmergencyConfig) { last = c })

	require.NoError(t, b.AddSlot("fri", sloteditor.Submission{}.Opener()))
	require.NoError(t, b.AddSlot("fri", sloteditor.Submission{}.Opener()))
	assert.Equal(t, []timeslot.Slot{{Start: "09:00", End: "11:00"}, {Start: "11:00", End: "13:00"}}, last.Slots["fri"])

	err := b.AddSlot("fri", sloteditor.Submission{Start: "10:00", End: "12:00"}.Opener())
	assert.ErrorIs(t, err, sloteditor.ErrInvalidSlot)

	require.NoError(t, b.EditSlot("fri", 0, sloteditor.Submission{Start: "08:00"}.Opener()))
	assert.Equal(t, "08:00", last.Slots["fri"][0].Start)

	require.NoError(t, b.EditSlot("fri", 1, sloteditor.Submission{Delete: true}.Opener()))
	assert.Equal(t, []timeslot.Slot{{Start: "08:00", End: "11:00"}}, last.Slots["fri"])

	assert.ErrorIs(t, b.EditSlot("fri", 3, sloteditor.Submission{}.Opener()), ErrSlotNotFound)
	assert.ErrorIs(t, b.AddSlot("xyz", sloteditor.Submission{}.Opener()), ErrUnknownDay)
	assert.ErrorIs(t, b.AddSlot("mon", nil), ErrNoEditorGiven)
}

func TestBlock_Replace(t *testing.T) {
	clinic := uuid.New()
	b := NewBlock(model.DefaultEmergencyConfig(clinic), nil)

	err := b.Replace(model.EmergencyConfig{
		ClinicID: uuid.New(),
		Mode:     model.EmergencySpecific,
		Phone:    "+33 1 23 45 67 89",
		Slots:    model.EmergencySlots{"tue": {{Start: "18:00", End: "20:00"}, {Start: "07:00", End: "08:00"}}},
	})
	require.NoError(t, err)
	got := b.Config()
	assert.Equal(t, clinic, got.ClinicID)
	assert.Equal(t, "07:00", got.Slots["tue"][0].Start)

	err = b.Replace(model.EmergencyConfig{Mode: model.EmergencyAlways, Slots: model.EmergencySlots{"funday": nil}})
	assert.ErrorIs(t, err, ErrUnknownDay)
}

type memEmergency struct {
	stored  map[uuid.UUID]model.EmergencyConfig
	saves   int
	saveErr error
}

func (m *memEmergency) Get(_ context.Context, id uuid.UUID) (*model.EmergencyConfig, error) {
	c, ok := m.stored[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = c.Clone()
	return &c, nil
}

func (m *memEmergency) Save(_ context.Context, c *model.EmergencyConfig) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.stored[c.ClinicID] = c.Clone()
	return nil
}

func TestService_Edit(t *testing.T) {
	repo := &memEmergency{stored: map[uuid.UUID]model.EmergencyConfig{}}
	svc := NewService(repo, nil, zerolog.Nop())
	clinic := uuid.New()
	ctx := context.Background()

	cfg, err := svc.Get(ctx, clinic)
	require.NoError(t, err)
	assert.Equal(t, model.EmergencyAlways, cfg.Mode)

	cfg, err = svc.Edit(ctx, clinic, func(b *Block) error {
		if err := b.SetMode(model.EmergencySpecific); err != nil {
			return err
		}
		b.FillAllDays()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.saves)
	assert.Len(t, cfg.Slots, 7)

	// nothing changed, nothing saved
	_, err = svc.Edit(ctx, clinic, func(*Block) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, repo.saves)

	repo.saveErr = errors.New("connection reset")
	_, err = svc.Edit(ctx, clinic, func(b *Block) error { b.SetPhone("112"); return nil })
	assert.Error(t, err)
	assert.Equal(t, "", repo.stored[clinic].Phone)
}
