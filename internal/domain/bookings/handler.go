package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"furrchum-vet/internal/middleware"
	"furrchum-vet/internal/platform/logger"
	"furrchum-vet/internal/ports/capabilities"
	"furrchum-vet/internal/ports/notify"

	"github.com/go-chi/chi/v5"
)

// HandlerOptions: todo lo opcional puede quedar en nil.
type HandlerOptions struct {
	// Si está, las videoconsultas exigen capabilities.FeatureVideoConsultations.
	Capabilities capabilities.CapabilitiesResolver
	// Notifier recibe un aviso best-effort cuando se confirma un booking.
	Notifier notify.Notifier
	// Observe cuenta resultados por operación (métricas).
	Observe func(operation, result string)
	Log     logger.Logger
}

type handler struct {
	mgr  *Manager
	caps capabilities.CapabilitiesResolver
	ntf  notify.Notifier
	obs  func(operation, result string)
	log  logger.Logger
}

func RegisterRoutes(r chi.Router, mgr *Manager, opts HandlerOptions) {
	h := newHandler(mgr, opts)

	r.Get("/providers/{providerID}/slots", h.availability)

	r.Post("/bookings", h.book)
	r.Get("/bookings", h.list)
	r.Get("/bookings/{bookingID}", h.get)
	r.Post("/bookings/{bookingID}/cancel", h.cancel)
	r.Post("/bookings/{bookingID}/reschedule", h.reschedule)
}

// RegisterAdminRoutes monta la transición administrativa; el router la protege con la admin key.
func RegisterAdminRoutes(r chi.Router, mgr *Manager, opts HandlerOptions) {
	h := newHandler(mgr, opts)
	r.Post("/bookings/{bookingID}/complete", h.complete)
}

func newHandler(mgr *Manager, opts HandlerOptions) *handler {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	obs := opts.Observe
	if obs == nil {
		obs = func(string, string) {}
	}
	return &handler{mgr: mgr, caps: opts.Capabilities, ntf: opts.Notifier, obs: obs, log: log}
}

type bookRequest struct {
	PetID      string   `json:"pet_id"`
	ProviderID string   `json:"provider_id"`
	Kind       Kind     `json:"kind" enums:"appointment,consultation"`
	Date       string   `json:"date"` // YYYY-MM-DD
	Time       string   `json:"time"` // HH:MM
	Category   Category `json:"category"`
	Notes      string   `json:"notes"`
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type slotResponse struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type availabilityResponse struct {
	ProviderID   string         `json:"provider_id"`
	ProviderName string         `json:"provider_name"`
	Slots        []slotResponse `json:"slots"`
}

// BookingResponse es la representación pública de un booking. La reutiliza dashboard.
type BookingResponse struct {
	ID              string     `json:"id"`
	PetID           string     `json:"pet_id"`
	ProviderID      string     `json:"provider_id"`
	ProviderName    string     `json:"provider_name"`
	Kind            Kind       `json:"kind"`
	Category        Category   `json:"category"`
	Date            string     `json:"scheduled_date"`
	Time            string     `json:"scheduled_time"`
	Status          Status     `json:"status"`
	Notes           string     `json:"notes"`
	RoomURL         string     `json:"room_url,omitempty"`
	RescheduledFrom string     `json:"rescheduled_from,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// availability godoc
// @Summary Slots disponibles de un veterinario
// @Description Catálogo del proveedor menos los slots ocupados por bookings no cancelados, en orden cronológico.
// @Tags bookings
// @Produce json
// @Param providerID path string true "ID del proveedor"
// @Success 200 {object} availabilityResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Router /providers/{providerID}/slots [get]
func (h *handler) availability(w http.ResponseWriter, r *http.Request) {
	prov, slots, err := h.mgr.Availability(r.Context(), chi.URLParam(r, "providerID"))
	h.obs("availability", ErrorKind(err))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := availabilityResponse{
		ProviderID:   prov.ID,
		ProviderName: prov.Name,
		Slots:        make([]slotResponse, 0, len(slots)),
	}
	for _, s := range slots {
		out.Slots = append(out.Slots, slotResponse{Date: s.Date, Time: s.Time})
	}
	writeJSON(w, http.StatusOK, out)
}

// book godoc
// @Summary Reservar turno o videoconsulta
// @Description Crea un booking en estado upcoming. Si el slot ya fue tomado responde 409: el cliente debe refrescar disponibilidad. Acepta Idempotency-Key para reintentos seguros.
// @Tags bookings
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Clave para reintentos idempotentes"
// @Param payload body bookRequest true "Selección de slot"
// @Success 201 {object} BookingResponse
// @Failure 400 {string} string "validation error"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "slot not available"
// @Failure 503 {string} string "storage unavailable"
// @Router /bookings [post]
func (h *handler) book(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		h.obs("book", ErrorKind(ErrUnauthenticated))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.obs("book", ErrorKind(ErrValidation))
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if k, ok := ParseKind(string(req.Kind)); ok && k == KindConsultation {
		if err := h.requireVideo(r.Context(), claims.UserID); err != nil {
			h.obs("book", ErrorKind(err))
			writeServiceError(w, err)
			return
		}
	}

	b, err := h.mgr.Book(r.Context(), BookInput{
		PetID:      req.PetID,
		ProviderID: req.ProviderID,
		Kind:       req.Kind,
		Date:       req.Date,
		Time:       req.Time,
		Category:   req.Category,
		Notes:      req.Notes,
	})
	h.obs("book", ErrorKind(err))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.notifyConfirmed(r.Context(), b)
	writeJSON(w, http.StatusCreated, ToResponse(b))
}

// list godoc
// @Summary Listar mis bookings
// @Tags bookings
// @Produce json
// @Param status query string false "CSV de estados (upcoming,completed,cancelled)"
// @Param kind query string false "appointment | consultation"
// @Param pet_id query string false "Filtrar por mascota"
// @Param limit query int false "Máximo a devolver (1-200)"
// @Success 200 {array} BookingResponse
// @Failure 400 {string} string "filtros inválidos"
// @Failure 401 {string} string "unauthorized"
// @Router /bookings [get]
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := h.mgr.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]BookingResponse, 0, len(items))
	for _, b := range items {
		out = append(out, ToResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.mgr.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToResponse(b))
}

// cancel godoc
// @Summary Cancelar booking
// @Description Idempotente: cancelar un booking ya cancelado devuelve 200 sin cambios. Un booking completado responde 409.
// @Tags bookings
// @Produce json
// @Param bookingID path string true "ID del booking"
// @Success 200 {object} BookingResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "invalid state"
// @Router /bookings/{bookingID}/cancel [post]
func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	b, err := h.mgr.Cancel(r.Context(), chi.URLParam(r, "bookingID"))
	h.obs("cancel", ErrorKind(err))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToResponse(b))
}

// reschedule godoc
// @Summary Reprogramar booking
// @Description Cancela el booking actual y crea uno nuevo en el slot pedido de forma atómica. Si falla, el booking original queda intacto.
// @Tags bookings
// @Accept json
// @Produce json
// @Param bookingID path string true "ID del booking"
// @Param payload body rescheduleRequest true "Nuevo slot"
// @Success 201 {object} BookingResponse
// @Failure 400 {string} string "validation error"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "slot not available / invalid state"
// @Router /bookings/{bookingID}/reschedule [post]
func (h *handler) reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.obs("reschedule", ErrorKind(ErrValidation))
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	b, err := h.mgr.Reschedule(r.Context(), chi.URLParam(r, "bookingID"), req.Date, req.Time)
	h.obs("reschedule", ErrorKind(err))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.notifyConfirmed(r.Context(), b)
	writeJSON(w, http.StatusCreated, ToResponse(b))
}

func (h *handler) complete(w http.ResponseWriter, r *http.Request) {
	b, err := h.mgr.Complete(r.Context(), chi.URLParam(r, "bookingID"))
	h.obs("complete", ErrorKind(err))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToResponse(b))
}

func (h *handler) requireVideo(ctx context.Context, userID string) error {
	if h.caps == nil {
		return nil
	}
	ok, err := h.caps.HasFeature(ctx, capabilities.CapabilityCheck{
		UserID:  userID,
		Feature: capabilities.FeatureVideoConsultations,
	})
	if err != nil {
		return storageError("capabilities", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// notifyConfirmed no falla el request: el booking ya está persistido.
func (h *handler) notifyConfirmed(ctx context.Context, b Booking) {
	if h.ntf == nil {
		return
	}
	title := "Appointment confirmed"
	if b.Kind == KindConsultation {
		title = "Video consultation confirmed"
	}
	err := h.ntf.Notify(ctx, b.OwnerUserID, notify.Message{
		Type:  notify.TypeAppointment,
		Title: title,
		Body:  b.ProviderName + " on " + b.Slot.String(),
	})
	if err != nil {
		h.log.Warn("booking notification failed", map[string]any{"booking_id": b.ID, "error": err})
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	var f ListFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := ParseStatus(part)
			if !ok {
				return ListFilter{}, errors.New("invalid status filter")
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	if raw := strings.TrimSpace(q.Get("kind")); raw != "" {
		k, ok := ParseKind(raw)
		if !ok {
			return ListFilter{}, errors.New("invalid kind filter")
		}
		f.Kind = k
	}

	f.PetID = strings.TrimSpace(q.Get("pet_id"))

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			return ListFilter{}, errors.New("limit must be between 1 and 200")
		}
		f.Limit = n
	}
	return f, nil
}

func ToResponse(b Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		PetID:           b.PetID,
		ProviderID:      b.ProviderID,
		ProviderName:    b.ProviderName,
		Kind:            b.Kind,
		Category:        b.Category,
		Date:            b.Slot.Date,
		Time:            b.Slot.Time,
		Status:          b.Status,
		Notes:           b.Notes,
		RoomURL:         b.RoomURL,
		RescheduledFrom: b.RescheduledFrom,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		CancelledAt:     b.CancelledAt,
		CompletedAt:     b.CompletedAt,
	}
}

// HTTPStatus mapea la taxonomía de errores a códigos HTTP.
func HTTPStatus(err error) int {
	switch ErrorKind(err) {
	case "validation":
		return http.StatusBadRequest
	case "unauthenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict", "invalid_state":
		return http.StatusConflict
	case "storage":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	switch status {
	case http.StatusUnauthorized:
		http.Error(w, "unauthorized", status)
	case http.StatusServiceUnavailable:
		// Reintentable: el cliente puede repetir con el mismo Idempotency-Key.
		w.Header().Set("Retry-After", "1")
		http.Error(w, "storage unavailable", status)
	case http.StatusInternalServerError:
		http.Error(w, "internal error", status)
	default:
		http.Error(w, err.Error(), status)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
