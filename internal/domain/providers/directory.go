package providers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"furrchum-vet/internal/domain/bookings"
)

// Vet es un veterinario con su horario de atención.
type Vet struct {
	ID        string
	Name      string
	Specialty string
	Rating    float64
	Fee       int // USD por consulta

	Weekdays []time.Weekday
	Times    []string // HH:MM
}

var (
	defaultWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	defaultTimes    = []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00"}
)

// DefaultVets es el directorio estático de la clínica.
func DefaultVets() []Vet {
	return []Vet{
		{ID: "1", Name: "Dr. Sarah Johnson", Specialty: "General Practice", Rating: 4.9, Fee: 75, Weekdays: defaultWeekdays, Times: defaultTimes},
		{ID: "2", Name: "Dr. Michael Chen", Specialty: "Surgery", Rating: 4.8, Fee: 90, Weekdays: defaultWeekdays, Times: defaultTimes},
		{ID: "3", Name: "Dr. Emily Rodriguez", Specialty: "Dermatology", Rating: 4.7, Fee: 85, Weekdays: defaultWeekdays, Times: defaultTimes},
		{ID: "4", Name: "Dr. David Kim", Specialty: "Nutrition", Rating: 4.9, Fee: 80, Weekdays: defaultWeekdays, Times: defaultTimes},
	}
}

type Options struct {
	Vets        []Vet
	DefaultID   string
	HorizonDays int
	Location    *time.Location
}

// Directory implementa bookings.ProviderDirectory con un listado en memoria.
// El catálogo se genera desde el horario de cada vet, nunca se persiste.
type Directory struct {
	byID      map[string]Vet
	order     []string
	defaultID string
	horizon   int
	loc       *time.Location
	now       func() time.Time
}

var _ bookings.ProviderDirectory = (*Directory)(nil)

func NewDirectory(opts Options) (*Directory, error) {
	vets := opts.Vets
	if len(vets) == 0 {
		vets = DefaultVets()
	}
	if opts.HorizonDays <= 0 {
		return nil, errors.New("providers: horizon days must be positive")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	d := &Directory{
		byID:    make(map[string]Vet, len(vets)),
		horizon: opts.HorizonDays,
		loc:     loc,
		now:     time.Now,
	}
	for _, v := range vets {
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" {
			return nil, errors.New("providers: vet id required")
		}
		if _, dup := d.byID[v.ID]; dup {
			return nil, errors.New("providers: duplicate vet id " + v.ID)
		}
		// "9:00" se guarda como "09:00" para coincidir con ParseSlot.
		times := make([]string, 0, len(v.Times))
		for _, raw := range v.Times {
			t, err := time.Parse(bookings.TimeLayout, strings.TrimSpace(raw))
			if err != nil {
				return nil, errors.New("providers: invalid working time " + raw)
			}
			times = append(times, t.Format(bookings.TimeLayout))
		}
		v.Times = times
		d.byID[v.ID] = v
		d.order = append(d.order, v.ID)
	}

	d.defaultID = strings.TrimSpace(opts.DefaultID)
	if d.defaultID == "" {
		d.defaultID = d.order[0]
	}
	if _, ok := d.byID[d.defaultID]; !ok {
		return nil, errors.New("providers: default provider " + d.defaultID + " not in directory")
	}
	return d, nil
}

func (d *Directory) List() []Vet {
	out := make([]Vet, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

func (d *Directory) Lookup(ctx context.Context, providerID string) (bookings.Provider, error) {
	v, ok := d.byID[strings.TrimSpace(providerID)]
	if !ok {
		return bookings.Provider{}, bookings.ErrRecordNotFound
	}
	return bookings.Provider{ID: v.ID, Name: v.Name}, nil
}

func (d *Directory) DefaultProviderID() string {
	return d.defaultID
}

// Catalog genera los slots de los próximos horizon días (desde hoy, zona de la
// clínica) según el horario del vet. Los slots ya pasados no se ofrecen.
func (d *Directory) Catalog(ctx context.Context, providerID string) ([]bookings.Slot, error) {
	v, ok := d.byID[strings.TrimSpace(providerID)]
	if !ok {
		return nil, bookings.ErrRecordNotFound
	}
	return catalogFor(v, d.now().In(d.loc), d.horizon, d.loc), nil
}

func catalogFor(v Vet, now time.Time, horizon int, loc *time.Location) []bookings.Slot {
	works := make(map[time.Weekday]bool, len(v.Weekdays))
	for _, wd := range v.Weekdays {
		works[wd] = true
	}

	times := append([]string(nil), v.Times...)
	sort.Strings(times)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	out := make([]bookings.Slot, 0, horizon*len(times))
	for i := 0; i < horizon; i++ {
		day := today.AddDate(0, 0, i)
		if !works[day.Weekday()] {
			continue
		}
		date := day.Format(bookings.DateLayout)
		for _, t := range times {
			s := bookings.Slot{Date: date, Time: t}
			if s.Start(loc).Before(now) {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}
