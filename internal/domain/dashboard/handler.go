package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"furrchum-vet/internal/domain/bookings"
	"furrchum-vet/internal/domain/pets"
	"furrchum-vet/internal/domain/records"
	"furrchum-vet/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const reminderWindow = 30 * 24 * time.Hour

type Deps struct {
	Bookings *bookings.Manager
	Pets     *pets.Service
	Records  *records.Service
}

func RegisterRoutes(r chi.Router, d Deps) {
	r.Get("/me/dashboard", dashboardHandler(d))
}

type dashboardResponse struct {
	NextBooking *bookings.BookingResponse  `json:"next_booking"`
	Pets        []pets.PetResponse         `json:"pets"`
	Reminders   []records.ReminderResponse `json:"reminders"`
}

// dashboardHandler godoc
// @Summary Pantalla de inicio
// @Description Próximo booking, mis mascotas y vacunas que vencen en los próximos 30 días.
// @Tags dashboard
// @Produce json
// @Success 200 {object} dashboardResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/dashboard [get]
func dashboardHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		out := dashboardResponse{
			Pets:      make([]pets.PetResponse, 0),
			Reminders: make([]records.ReminderResponse, 0),
		}

		next, found, err := d.Bookings.NextUpcoming(r.Context())
		if err != nil {
			http.Error(w, "internal error", bookings.HTTPStatus(err))
			return
		}
		if found {
			resp := bookings.ToResponse(next)
			out.NextBooking = &resp
		}

		mine, err := d.Pets.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		for _, p := range mine {
			out.Pets = append(out.Pets, pets.ToResponse(p))
		}

		rem, err := records.OwnerReminders(r.Context(), d.Records, d.Pets, claims.UserID, reminderWindow)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out.Reminders = append(out.Reminders, rem...)

		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
