package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"furrchum-vet/internal/platform/logger"
	"furrchum-vet/internal/ports/idempotency"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxKeyLength      = 128
	maxIdemBodyBytes  = 1 << 20
)

// Idempotency permite reintentar POSTs (p.ej. reservar un turno tras un timeout)
// sin duplicar efectos: la primera respuesta < 500 se guarda y se reenvía.
// Las respuestas 5xx, los panics y los timeouts liberan la key para que el
// cliente pueda reintentar. Reusar la key con otro body responde 422.
func Idempotency(store idempotency.Store, ttl time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if r.Method != http.MethodPost || raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(raw) > maxKeyLength {
				http.Error(w, "idempotency key too long", http.StatusBadRequest)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdemBodyBytes+1))
			if err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			if len(body) > maxIdemBodyBytes {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := bodyHash(body)

			subject := clientKey(r)
			key := subject + "|" + r.Method + "|" + r.URL.Path + "|" + raw
			ctx := r.Context()

			if rec, found, err := store.Load(ctx, key); err != nil {
				log.Error("idempotency load failed", map[string]any{"err": err})
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			} else if found {
				if rec.BodyHash != "" && rec.BodyHash != hash {
					http.Error(w, "idempotency key reused with a different request body", http.StatusUnprocessableEntity)
					return
				}
				replay(w, rec)
				return
			}

			claimed, err := store.Claim(ctx, key, ttl)
			if err != nil {
				log.Error("idempotency claim failed", map[string]any{"err": err})
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
			if !claimed {
				http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
				return
			}

			// El request puede estar cancelado (timeout) cuando liberamos o guardamos.
			bg := context.WithoutCancel(ctx)
			completed := false
			defer func() {
				if completed {
					return
				}
				if err := store.Release(bg, key); err != nil {
					log.Warn("idempotency release failed", map[string]any{"err": err})
				}
			}()

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status >= 500 {
				return
			}

			// Ya hubo efecto: si Save falla, la key queda tomada hasta el TTL.
			completed = true
			rec := idempotency.Record{
				Status:      rw.status,
				ContentType: rw.Header().Get("Content-Type"),
				Body:        rw.buf.Bytes(),
				BodyHash:    hash,
			}
			if err := store.Save(bg, key, rec, ttl); err != nil {
				log.Warn("idempotency save failed", map[string]any{"err": err})
			}
		})
	}
}

func bodyHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, rec idempotency.Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

// recordingWriter escribe al cliente y a la vez copia el body.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}
