package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"furrchum-vet/internal/ports/notify"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// Service es el inbox in-app. Implementa notify.Notifier para que otros
// módulos publiquen avisos sin depender de este paquete.
type Service struct {
	repo Repository
	now  func() time.Time
}

var _ notify.Notifier = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) Notify(ctx context.Context, userID string, msg notify.Message) error {
	_, err := s.Create(ctx, userID, msg)
	return err
}

func (s *Service) Create(ctx context.Context, userID string, msg notify.Message) (Notification, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(msg.Title) == "" {
		return Notification{}, ErrInvalidInput
	}
	typ := msg.Type
	switch typ {
	case notify.TypeAppointment, notify.TypeMedication, notify.TypeSystem:
	case "":
		typ = notify.TypeSystem
	default:
		return Notification{}, ErrInvalidInput
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     strings.TrimSpace(msg.Title),
		Message:   strings.TrimSpace(msg.Body),
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	n, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return Notification{}, err
	}
	if n.Read {
		return n, nil
	}

	at := s.now()
	n.Read = true
	n.ReadAt = &at
	if err := s.repo.Update(ctx, n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

// Dismiss oculta la notificación del inbox (soft delete).
func (s *Service) Dismiss(ctx context.Context, userID, id string) error {
	n, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if n.Dismissed {
		return nil
	}
	n.Dismissed = true
	return s.repo.Update(ctx, n)
}

func (s *Service) getOwned(ctx context.Context, userID, id string) (Notification, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Notification{}, ErrNotFound
	}
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != userID {
		return Notification{}, ErrForbidden
	}
	return n, nil
}
