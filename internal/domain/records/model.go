package records

import "time"

// PetRecord es una entrada del historial médico de la mascota.
type PetRecord struct {
	ID    string
	PetID string

	Kind Kind

	OccurredAt time.Time
	RecordedAt time.Time

	Title   string
	Notes   string
	VetName string

	// Solo vacunas: fecha del próximo refuerzo.
	NextDue *time.Time

	RecordedBy string
	Status     Status
}

// Reminder es una vacuna con refuerzo vencido o próximo a vencer.
type Reminder struct {
	PetID    string
	RecordID string
	Title    string
	DueAt    time.Time
	Overdue  bool
}
