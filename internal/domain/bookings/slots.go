package bookings

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Slot es un par (fecha, hora) reservable. Ambos campos van zero-padded,
// así que el orden lexicográfico coincide con el cronológico.
type Slot struct {
	Date string
	Time string
}

// ParseSlot valida y normaliza fecha (YYYY-MM-DD) y hora (HH:MM).
func ParseSlot(date, clock string) (Slot, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if date == "" {
		return Slot{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if clock == "" {
		return Slot{}, fmt.Errorf("%w: time is required", ErrValidation)
	}

	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}

	return Slot{Date: d.Format(DateLayout), Time: t.Format(TimeLayout)}, nil
}

// Start devuelve el instante de inicio en la zona horaria de la clínica.
func (s Slot) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s Slot) Less(o Slot) bool {
	if s.Date != o.Date {
		return s.Date < o.Date
	}
	return s.Time < o.Time
}

func (s Slot) String() string {
	return s.Date + " " + s.Time
}

func SortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
}

// ProposeSlots devuelve los slots del catálogo que no están ocupados por
// ningún booking no cancelado, sin duplicados y en orden cronológico.
// existing debe ser el conjunto de bookings del proveedor objetivo.
func ProposeSlots(catalog []Slot, existing []Booking) []Slot {
	held := make(map[Slot]struct{}, len(existing))
	for _, b := range existing {
		if b.HoldsSlot() {
			held[b.Slot] = struct{}{}
		}
	}

	seen := make(map[Slot]struct{}, len(catalog))
	out := make([]Slot, 0, len(catalog))
	for _, s := range catalog {
		if _, ok := held[s]; ok {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	SortSlots(out)
	return out
}

func containsSlot(catalog []Slot, s Slot) bool {
	for _, c := range catalog {
		if c == s {
			return true
		}
	}
	return false
}

func slotHeld(existing []Booking, s Slot, ignoreID string) bool {
	for _, b := range existing {
		if b.ID == ignoreID {
			continue
		}
		if b.HoldsSlot() && b.Slot == s {
			return true
		}
	}
	return false
}
