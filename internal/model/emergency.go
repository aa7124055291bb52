package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// DayKey names a weekday in the emergency grid ("mon".."sun").
type DayKey string

var dayKeys = [DaysPerWeek]DayKey{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DayKeys returns the keys in display order.
func DayKeys() []DayKey {
	return append([]DayKey(nil), dayKeys[:]...)
}

// ParseDayKey validates k and returns its weekday.
func ParseDayKey(k string) (Weekday, error) {
	for i, key := range dayKeys {
		if string(key) == k {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day key %q", k)
}

// EmergencyMode selects when the emergency line is reachable.
type EmergencyMode string

const (
	EmergencyAlways   EmergencyMode = "always"
	EmergencySpecific EmergencyMode = "specific"
)

func (m EmergencyMode) Valid() bool { return m == EmergencyAlways || m == EmergencySpecific }

// EmergencySlots maps day keys to their slots. Stored as one JSON column.
type EmergencySlots map[DayKey][]timeslot.Slot

func (s EmergencySlots) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

func (s *EmergencySlots) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = EmergencySlots{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("model: cannot scan %T into EmergencySlots", src)
	}
}

// EmergencyConfig is edited and saved as one unit.
type EmergencyConfig struct {
	ClinicID  uuid.UUID      `json:"clinic_id" db:"clinic_id"`
	Mode      EmergencyMode  `json:"mode" db:"mode" binding:"required,oneof=always specific"`
	Phone     string         `json:"phone" db:"phone" binding:"max=32"`
	Slots     EmergencySlots `json:"slots" db:"slots"`
	UpdatedAt time.Time      `json:"updated_at,omitempty" db:"updated_at"`
}

// Clone deep-copies the config.
func (c EmergencyConfig) Clone() EmergencyConfig {
	out := c
	out.Slots = make(EmergencySlots, len(c.Slots))
	for k, v := range c.Slots {
		out.Slots[k] = append([]timeslot.Slot{}, v...)
	}
	return out
}

// DefaultEmergencyConfig is what a clinic without a stored config gets.
func DefaultEmergencyConfig(clinicID uuid.UUID) EmergencyConfig {
	return EmergencyConfig{
		ClinicID: clinicID,
		Mode:     EmergencyAlways,
		Slots:    EmergencySlots{},
	}
}
