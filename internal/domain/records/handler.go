package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"furrchum-vet/internal/domain/pets"
	"furrchum-vet/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const defaultReminderWindow = 30 * 24 * time.Hour

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service) {
	r.Post("/pets/{petID}/records", createRecordHandler(svc, petsSvc))
	r.Get("/pets/{petID}/records", listRecordsHandler(svc, petsSvc))
	r.Post("/pets/{petID}/records/{recordID}/void", voidRecordHandler(svc, petsSvc))

	r.Get("/pets/{petID}/profile", petProfileHandler(svc, petsSvc))
	r.Get("/me/reminders", remindersHandler(svc, petsSvc))
}

type createRecordRequest struct {
	Kind       Kind   `json:"kind" enums:"MEDICAL_VISIT,VACCINATION"`
	OccurredAt string `json:"occurred_at"` // RFC3339
	Title      string `json:"title"`
	Notes      string `json:"notes"`
	VetName    string `json:"vet_name"`
	NextDue    string `json:"next_due"` // RFC3339, opcional (solo vacunas)
}

// RecordResponse representa un registro médico devuelto por la API.
type RecordResponse struct {
	ID         string     `json:"id"`
	PetID      string     `json:"pet_id"`
	Kind       Kind       `json:"kind"`
	OccurredAt time.Time  `json:"occurred_at"`
	RecordedAt time.Time  `json:"recorded_at"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes"`
	VetName    string     `json:"vet_name"`
	NextDue    *time.Time `json:"next_due,omitempty"`
	Status     Status     `json:"status"`
}

type ReminderResponse struct {
	PetID    string    `json:"pet_id"`
	PetName  string    `json:"pet_name"`
	RecordID string    `json:"record_id"`
	Title    string    `json:"title"`
	DueAt    time.Time `json:"due_at"`
	Overdue  bool      `json:"overdue"`
}

type petProfileResponse struct {
	Pet            pets.PetResponse `json:"pet"`
	MedicalHistory []RecordResponse `json:"medical_history"`
	Vaccinations   []RecordResponse `json:"vaccinations"`
}

// createRecordHandler godoc
// @Summary Registrar visita médica o vacuna
// @Description Solo el dueño de la mascota. next_due solo aplica a vacunas.
// @Tags records
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body createRecordRequest true "Datos del registro; fechas en RFC3339"
// @Success 201 {object} RecordResponse
// @Failure 400 {string} string "invalid json / fechas inválidas / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/records [post]
func createRecordHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		if _, err := petsSvc.GetOwned(r.Context(), claims.UserID, petID); err != nil {
			pets.WriteServiceError(w, err)
			return
		}

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		occurred, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			http.Error(w, "occurred_at must be RFC3339", http.StatusBadRequest)
			return
		}
		var nextDue *time.Time
		if strings.TrimSpace(req.NextDue) != "" {
			t, err := time.Parse(time.RFC3339, req.NextDue)
			if err != nil {
				http.Error(w, "next_due must be RFC3339", http.StatusBadRequest)
				return
			}
			nextDue = &t
		}

		rec, err := svc.Create(r.Context(), petID, claims.UserID, CreateInput{
			Kind:       Kind(strings.ToUpper(strings.TrimSpace(string(req.Kind)))),
			OccurredAt: occurred,
			Title:      req.Title,
			Notes:      req.Notes,
			VetName:    req.VetName,
			NextDue:    nextDue,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(rec))
	}
}

// listRecordsHandler godoc
// @Summary Listar historial médico
// @Tags records
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param kinds query string false "CSV de tipos (MEDICAL_VISIT,VACCINATION)"
// @Param from query string false "occurred_at mínimo (RFC3339)"
// @Param to query string false "occurred_at máximo (RFC3339)"
// @Param q query string false "Texto libre en título/notas"
// @Param include_voided query bool false "Incluir registros anulados"
// @Param limit query int false "Máximo (1-200). Por defecto 50"
// @Success 200 {array} RecordResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/records [get]
func listRecordsHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		if _, err := petsSvc.GetOwned(r.Context(), claims.UserID, petID); err != nil {
			pets.WriteServiceError(w, err)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListByPet(r.Context(), petID, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]RecordResponse, 0, len(items))
		for _, rec := range items {
			out = append(out, ToResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// voidRecordHandler godoc
// @Summary Anular (void) un registro
// @Description El registro queda con status voided; no se borra.
// @Tags records
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} RecordResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "record not found"
// @Router /pets/{petID}/records/{recordID}/void [post]
func voidRecordHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Permisos primero, para no filtrar si el registro existe.
		petID := chi.URLParam(r, "petID")
		if _, err := petsSvc.GetOwned(r.Context(), claims.UserID, petID); err != nil {
			pets.WriteServiceError(w, err)
			return
		}

		rec, err := svc.Void(r.Context(), petID, chi.URLParam(r, "recordID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(rec))
	}
}

// petProfileHandler godoc
// @Summary Perfil completo de la mascota
// @Description Datos de la mascota más historial médico y vacunas activas.
// @Tags records
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} petProfileResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/profile [get]
func petProfileHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := petsSvc.GetOwned(r.Context(), claims.UserID, chi.URLParam(r, "petID"))
		if err != nil {
			pets.WriteServiceError(w, err)
			return
		}

		items, err := svc.ListByPet(r.Context(), p.ID, ListFilter{Limit: 200})
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := petProfileResponse{
			Pet:            pets.ToResponse(p),
			MedicalHistory: make([]RecordResponse, 0),
			Vaccinations:   make([]RecordResponse, 0),
		}
		for _, rec := range items {
			switch rec.Kind {
			case KindMedicalVisit:
				out.MedicalHistory = append(out.MedicalHistory, ToResponse(rec))
			case KindVaccination:
				out.Vaccinations = append(out.Vaccinations, ToResponse(rec))
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// remindersHandler godoc
// @Summary Recordatorios de vacunas
// @Description Refuerzos vencidos o que vencen dentro de within_days (por defecto 30) para todas mis mascotas.
// @Tags records
// @Produce json
// @Param within_days query int false "Ventana en días (1-365)"
// @Success 200 {array} ReminderResponse
// @Failure 400 {string} string "within_days inválido"
// @Failure 401 {string} string "unauthorized"
// @Router /me/reminders [get]
func remindersHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		within := defaultReminderWindow
		if v := strings.TrimSpace(r.URL.Query().Get("within_days")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 365 {
				http.Error(w, "within_days must be between 1 and 365", http.StatusBadRequest)
				return
			}
			within = time.Duration(n) * 24 * time.Hour
		}

		out, err := OwnerReminders(r.Context(), svc, petsSvc, claims.UserID, within)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	filter := ListFilter{Limit: limit}

	if v := strings.TrimSpace(r.URL.Query().Get("kinds")); v != "" {
		for _, p := range strings.Split(v, ",") {
			k := Kind(strings.ToUpper(strings.TrimSpace(p)))
			if k == "" {
				continue
			}
			if !k.Valid() {
				return ListFilter{}, errors.New("unknown record kind " + string(k))
			}
			filter.Kinds = append(filter.Kinds, k)
		}
	}

	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}

	filter.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	filter.IncludeVoided = r.URL.Query().Get("include_voided") == "true"

	return filter, nil
}

func ToResponse(rec PetRecord) RecordResponse {
	return RecordResponse{
		ID:         rec.ID,
		PetID:      rec.PetID,
		Kind:       rec.Kind,
		OccurredAt: rec.OccurredAt,
		RecordedAt: rec.RecordedAt,
		Title:      rec.Title,
		Notes:      rec.Notes,
		VetName:    rec.VetName,
		NextDue:    rec.NextDue,
		Status:     rec.Status,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
