package auth

import "context"

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// SessionSource expone la sesión autenticada del request en curso.
// ok=false significa "sin sesión"; los servicios deciden si eso es un error.
type SessionSource interface {
	CurrentSession(ctx context.Context) (Claims, bool)
}
