package records

import (
	"context"
	"time"

	"furrchum-vet/internal/domain/pets"
)

// OwnerReminders junta los recordatorios de todas las mascotas del dueño.
func OwnerReminders(ctx context.Context, svc *Service, petsSvc *pets.Service, ownerUserID string, within time.Duration) ([]ReminderResponse, error) {
	mine, err := petsSvc.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(mine))
	ids := make([]string, 0, len(mine))
	for _, p := range mine {
		names[p.ID] = p.Name
		ids = append(ids, p.ID)
	}

	due, err := svc.DueVaccinations(ctx, ids, within)
	if err != nil {
		return nil, err
	}

	out := make([]ReminderResponse, 0, len(due))
	for _, rem := range due {
		out = append(out, ReminderResponse{
			PetID:    rem.PetID,
			PetName:  names[rem.PetID],
			RecordID: rem.RecordID,
			Title:    rem.Title,
			DueAt:    rem.DueAt,
			Overdue:  rem.Overdue,
		})
	}
	return out, nil
}
