package bookings

import (
	"strings"
	"time"
)

// Kind distingue turno presencial de videoconsulta.
type Kind string

const (
	KindAppointment  Kind = "appointment"
	KindConsultation Kind = "consultation"
)

func (k Kind) Valid() bool {
	return k == KindAppointment || k == KindConsultation
}

// ParseKind normaliza el kind recibido. Vacío equivale a appointment.
// Handler y Manager deben usar esta misma función para que el gate de
// videoconsultas vea el mismo kind que se persiste.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindAppointment, true
	}
	return k, k.Valid()
}

type Category string

// Categorías de turno presencial.
const (
	CategoryCheckUp     Category = "check-up"
	CategoryVaccination Category = "vaccination"
	CategoryIllness     Category = "illness"
	CategoryDental      Category = "dental"
	CategoryGrooming    Category = "grooming"
)

// Categorías de videoconsulta.
const (
	CategoryGeneral   Category = "general"
	CategoryFollowUp  Category = "follow-up"
	CategoryEmergency Category = "emergency"
	CategoryBehavior  Category = "behavior"
	CategoryNutrition Category = "nutrition"
)

var categoriesByKind = map[Kind][]Category{
	KindAppointment: {
		CategoryCheckUp, CategoryVaccination, CategoryIllness, CategoryDental, CategoryGrooming,
	},
	KindConsultation: {
		CategoryGeneral, CategoryFollowUp, CategoryEmergency, CategoryBehavior, CategoryNutrition,
	},
}

// Categories devuelve las categorías válidas para un kind (copia).
func Categories(k Kind) []Category {
	return append([]Category(nil), categoriesByKind[k]...)
}

func (c Category) ValidFor(k Kind) bool {
	for _, allowed := range categoriesByKind[k] {
		if c == allowed {
			return true
		}
	}
	return false
}

// Status del ciclo de vida: upcoming -> cancelled | completed. Ambos son terminales.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"

	// La tabla original de videollamadas usaba "scheduled" como estado inicial.
	statusScheduledLegacy = "scheduled"
)

// ParseStatus normaliza el valor persistido (acepta el legacy "scheduled").
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StatusUpcoming), statusScheduledLegacy:
		return StatusUpcoming, true
	case string(StatusCompleted):
		return StatusCompleted, true
	case string(StatusCancelled):
		return StatusCancelled, true
	default:
		return "", false
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking es un turno o videoconsulta que ocupa un slot de un proveedor.
type Booking struct {
	ID          string
	OwnerUserID string
	PetID       string

	ProviderID   string
	ProviderName string

	Kind     Kind
	Category Category
	Slot     Slot
	Status   Status
	Notes    string

	// Solo videoconsultas.
	RoomURL string

	// ID del booking cancelado por un reschedule, si aplica.
	RescheduledFrom string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
}

// HoldsSlot indica si el booking bloquea su slot (todo lo que no esté cancelado).
func (b Booking) HoldsSlot() bool {
	return b.Status != StatusCancelled
}

// Transitioned devuelve una copia con el nuevo status y sus timestamps.
func (b Booking) Transitioned(to Status, at time.Time) Booking {
	b.Status = to
	b.UpdatedAt = at
	switch to {
	case StatusCancelled:
		t := at
		b.CancelledAt = &t
	case StatusCompleted:
		t := at
		b.CompletedAt = &t
	}
	return b
}
