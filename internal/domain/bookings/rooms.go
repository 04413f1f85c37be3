package bookings

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RoomIssuer genera la URL de la sala de video de una consulta.
// El join/render lo hace un web view externo; acá solo emitimos la referencia.
type RoomIssuer interface {
	NewRoomURL() (string, error)
}

// URLRoomIssuer agrega un token aleatorio (uuid v4, crypto/rand) al origen base.
type URLRoomIssuer struct {
	base string
}

func NewURLRoomIssuer(baseURL string) (*URLRoomIssuer, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("room base url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, errors.New("room base url: scheme must be http(s)")
	}
	if u.Host == "" {
		return nil, errors.New("room base url: host required")
	}
	return &URLRoomIssuer{base: strings.TrimRight(u.String(), "/")}, nil
}

func (r *URLRoomIssuer) NewRoomURL() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("room token: %w", err)
	}
	return r.base + "/" + strings.ReplaceAll(id.String(), "-", ""), nil
}

func (r *URLRoomIssuer) BaseURL() string {
	return r.base
}
