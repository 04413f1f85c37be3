package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"furrchum-vet/internal/domain/bookings"
)

func TestDirectory_CatalogSkipsWeekendsAndPast(t *testing.T) {
	d, err := NewDirectory(Options{HorizonDays: 3, DefaultID: "1"})
	if err != nil {
		t.Fatalf("NewDirectory error: %v", err)
	}
	// Viernes 10:30: hoy quedan 11:00, 13:00, 14:00, 15:00; sábado y domingo no atienden.
	d.now = func() time.Time { return time.Date(2023, 11, 17, 10, 30, 0, 0, time.UTC) }

	slots, err := d.Catalog(context.Background(), "1")
	if err != nil {
		t.Fatalf("Catalog error: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d: %v", len(slots), slots)
	}
	if slots[0] != (bookings.Slot{Date: "2023-11-17", Time: "11:00"}) {
		t.Fatalf("unexpected first slot %v", slots[0])
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i-1].Less(slots[i]) {
			t.Fatalf("catalog not ascending at %d: %v", i, slots)
		}
	}
}

func TestDirectory_CatalogUsesClinicTimezone(t *testing.T) {
	loc := time.FixedZone("clinic", -5*3600)
	d, err := NewDirectory(Options{HorizonDays: 1, Location: loc})
	if err != nil {
		t.Fatalf("NewDirectory error: %v", err)
	}
	// 03:00 UTC del martes = 22:00 del lunes en la clínica: ya no quedan slots hoy.
	d.now = func() time.Time { return time.Date(2023, 11, 14, 3, 0, 0, 0, time.UTC) }

	slots, _ := d.Catalog(context.Background(), "1")
	if len(slots) != 0 {
		t.Fatalf("expected no slots left today in clinic tz, got %v", slots)
	}
}

func TestDirectory_LookupAndDefaults(t *testing.T) {
	d, err := NewDirectory(Options{HorizonDays: 14})
	if err != nil {
		t.Fatalf("NewDirectory error: %v", err)
	}
	if d.DefaultProviderID() != "1" {
		t.Fatalf("expected first vet as default, got %q", d.DefaultProviderID())
	}

	p, err := d.Lookup(context.Background(), "2")
	if err != nil || p.Name != "Dr. Michael Chen" {
		t.Fatalf("unexpected lookup: %#v (err=%v)", p, err)
	}
	if _, err := d.Lookup(context.Background(), "99"); !errors.Is(err, bookings.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := d.Catalog(context.Background(), "99"); !errors.Is(err, bookings.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for catalog, got %v", err)
	}

	if _, err := NewDirectory(Options{HorizonDays: 14, DefaultID: "99"}); err == nil {
		t.Fatalf("expected error for unknown default provider")
	}
	if _, err := NewDirectory(Options{HorizonDays: 0}); err == nil {
		t.Fatalf("expected error for zero horizon")
	}
}

func TestDirectory_NormalizesWorkingTimes(t *testing.T) {
	vet := Vet{ID: "x", Name: "Dr. Test", Weekdays: []time.Weekday{time.Friday}, Times: []string{"14:00", " 9:00"}}
	d, err := NewDirectory(Options{Vets: []Vet{vet}, HorizonDays: 1})
	if err != nil {
		t.Fatalf("NewDirectory error: %v", err)
	}
	d.now = func() time.Time { return time.Date(2023, 11, 17, 7, 0, 0, 0, time.UTC) }

	slots, err := d.Catalog(context.Background(), "x")
	if err != nil {
		t.Fatalf("Catalog error: %v", err)
	}

	want, err := bookings.ParseSlot("2023-11-17", "9:00")
	if err != nil {
		t.Fatalf("ParseSlot error: %v", err)
	}
	if len(slots) != 2 || slots[0] != want || slots[1].Time != "14:00" {
		t.Fatalf("expected [%v 14:00] in order, got %v", want, slots)
	}

	if _, err := NewDirectory(Options{Vets: []Vet{{ID: "y", Times: []string{"25:00"}}}, HorizonDays: 1}); err == nil {
		t.Fatalf("expected invalid working time to be rejected")
	}
}
