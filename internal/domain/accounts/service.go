package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // límite de bcrypt
)

// TokenIssuer firma el token de sesión.
type TokenIssuer interface {
	Issue(userID, email string) (string, time.Time, error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	cost   int
	now    func() time.Time
}

func NewService(repo Repository, tokens TokenIssuer) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// WithCost ajusta el costo de bcrypt (los tests usan bcrypt.MinCost).
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (User, Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return User{}, Session{}, err
	}
	if len(in.Password) < minPasswordLen || len(in.Password) > maxPasswordLen {
		return User{}, Session{}, ErrInvalidInput
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return User{}, Session{}, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, Session{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, Session{}, err
	}

	sess, err := s.issue(u)
	if err != nil {
		return User{}, Session{}, err
	}
	return u, sess, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (User, Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, Session{}, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, Session{}, ErrInvalidCredentials
		}
		return User{}, Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, Session{}, ErrInvalidCredentials
	}

	sess, err := s.issue(u)
	if err != nil {
		return User{}, Session{}, err
	}
	return u, sess, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

func (s *Service) issue(u User) (Session, error) {
	if s.tokens == nil {
		return Session{}, errors.New("token issuer not configured")
	}
	tok, exp, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, ExpiresAt: exp}, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidInput
	}
	return strings.ToLower(addr.Address), nil
}
