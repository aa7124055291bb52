package emergency

import (
	"errors"
	"fmt"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/service/sloteditor"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

var (
	ErrInvalidMode   = errors.New("emergency mode must be always or specific")
	ErrUnknownDay    = errors.New("unknown day key")
	ErrSlotNotFound  = errors.New("slot index out of range")
	ErrNoEditorGiven = errors.New("no slot editor opener")
)

// FillSlot is what "fill all days" puts into every empty day.
var FillSlot = timeslot.Slot{Start: "09:00", End: "17:00"}

// Block edits an emergency config as one unit. Every change hands the whole
// config to onChange; the owner decides when to store it.
type Block struct {
	cfg      model.EmergencyConfig
	onChange func(model.EmergencyConfig)
}

func NewBlock(cfg model.EmergencyConfig, onChange func(model.EmergencyConfig)) *Block {
	b := &Block{cfg: cfg.Clone(), onChange: onChange}
	if b.cfg.Mode == "" {
		b.cfg.Mode = model.EmergencyAlways
	}
	return b
}

// Config returns a copy of the current value.
func (b *Block) Config() model.EmergencyConfig { return b.cfg.Clone() }

// Day is one cell of the per-day grid.
type Day struct {
	Key        model.DayKey    `json:"key"`
	Label      string          `json:"label"`
	Slots      []timeslot.Slot `json:"slots"`
	HasOverlap bool            `json:"has_overlap"`
}

// Days is the grid shown in specific mode. It is empty in always mode.
func (b *Block) Days() []Day {
	if b.cfg.Mode != model.EmergencySpecific {
		return []Day{}
	}
	days := make([]Day, 0, model.DaysPerWeek)
	for i, k := range model.DayKeys() {
		slots := timeslot.Sort(b.cfg.Slots[k])
		days = append(days, Day{
			Key:        k,
			Label:      model.Weekday(i).String(),
			Slots:      slots,
			HasOverlap: timeslot.HasOverlap(slots),
		})
	}
	return days
}

func (b *Block) SetMode(m model.EmergencyMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	b.cfg.Mode = m
	b.changed()
	return nil
}

func (b *Block) SetPhone(phone string) {
	b.cfg.Phone = phone
	b.changed()
}

// Replace swaps the whole config, keeping the clinic it belongs to.
func (b *Block) Replace(cfg model.EmergencyConfig) error {
	if !cfg.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
	next := cfg.Clone()
	next.ClinicID = b.cfg.ClinicID
	for k, slots := range next.Slots {
		if _, err := model.ParseDayKey(string(k)); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownDay, k)
		}
		next.Slots[k] = timeslot.Sort(slots)
	}
	b.cfg = next
	b.changed()
	return nil
}

// FillAllDays seeds FillSlot into every day that has no slots.
func (b *Block) FillAllDays() {
	if b.cfg.Slots == nil {
		b.cfg.Slots = model.EmergencySlots{}
	}
	for _, k := range model.DayKeys() {
		if len(b.cfg.Slots[k]) == 0 {
			b.cfg.Slots[k] = []timeslot.Slot{FillSlot}
		}
	}
	b.changed()
}

// AddSlot opens the editor in create mode for day k.
func (b *Block) AddSlot(k model.DayKey, open sloteditor.Opener) error {
	w, err := b.day(k, open)
	if err != nil {
		return err
	}
	slots := timeslot.Sort(b.cfg.Slots[k])
	return open(sloteditor.Params{
		DayLabel:      w.String(),
		Initial:       sloteditor.Prefill(slots),
		ExistingSlots: slots,
		OnSave: func(s timeslot.Slot) error {
			b.setSlots(k, append(slots, s))
			return nil
		},
	})
}

// EditSlot opens the editor on the slot at index of day k.
func (b *Block) EditSlot(k model.DayKey, index int, open sloteditor.Opener) error {
	w, err := b.day(k, open)
	if err != nil {
		return err
	}
	slots := timeslot.Sort(b.cfg.Slots[k])
	if index < 0 || index >= len(slots) {
		return fmt.Errorf("%w: %s has %d slots, got %d", ErrSlotNotFound, k, len(slots), index)
	}
	siblings := make([]timeslot.Slot, 0, len(slots)-1)
	siblings = append(siblings, slots[:index]...)
	siblings = append(siblings, slots[index+1:]...)

	return open(sloteditor.Params{
		DayLabel:      w.String(),
		Initial:       slots[index],
		ExistingSlots: siblings,
		Editing:       true,
		OnSave: func(s timeslot.Slot) error {
			b.setSlots(k, append(siblings, s))
			return nil
		},
		OnDelete: func() error {
			b.setSlots(k, siblings)
			return nil
		},
	})
}

func (b *Block) day(k model.DayKey, open sloteditor.Opener) (model.Weekday, error) {
	if open == nil {
		return 0, ErrNoEditorGiven
	}
	w, err := model.ParseDayKey(string(k))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDay, k)
	}
	return w, nil
}

func (b *Block) setSlots(k model.DayKey, slots []timeslot.Slot) {
	if b.cfg.Slots == nil {
		b.cfg.Slots = model.EmergencySlots{}
	}
	b.cfg.Slots[k] = timeslot.Sort(slots)
	b.changed()
}

func (b *Block) changed() {
	if b.onChange != nil {
		b.onChange(b.cfg.Clone())
	}
}
