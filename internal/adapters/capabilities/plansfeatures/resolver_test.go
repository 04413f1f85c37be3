package plansfeatures

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"furrchum-vet/internal/ports/capabilities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_HasFeature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/capabilities", r.URL.Path)
		if r.URL.Query().Get("user_id") == "premium" {
			_, _ = w.Write([]byte(`{"capabilities":{"consultations:video":true}}`))
			return
		}
		_, _ = w.Write([]byte(`{"capabilities":{}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	r := NewResolver(client, false)

	ok, err := r.HasFeature(context.Background(), capabilities.CapabilityCheck{UserID: "premium", Feature: capabilities.FeatureVideoConsultations})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasFeature(context.Background(), capabilities.CapabilityCheck{UserID: "basic", Feature: capabilities.FeatureVideoConsultations})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_AllowAllAndUnconfigured(t *testing.T) {
	ok, err := NewResolver(nil, true).HasFeature(context.Background(), capabilities.CapabilityCheck{UserID: "u", Feature: "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = NewResolver(nil, false).HasFeature(context.Background(), capabilities.CapabilityCheck{UserID: "u", Feature: "x"})
	assert.ErrorIs(t, err, ErrPlansNotConfigured)
}
