package pets

import "time"

// Species define las especies más comunes. Se acepta texto libre
// (la app permite "rabbit", "bird", etc.), estas son las sugeridas en UI.
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

// Pet representa el perfil de una mascota registrada por su dueño.
type Pet struct {
	ID          string
	OwnerUserID string

	Name    string
	Species Species
	Breed   string

	AgeYears int
	WeightKg float64
	PhotoURL string

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}
