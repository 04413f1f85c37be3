package providers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, dir *Directory) {
	r.Get("/providers", listProvidersHandler(dir))
}

type providerResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Specialty string   `json:"specialty"`
	Rating    float64  `json:"rating"`
	Fee       int      `json:"fee"`
	Weekdays  []string `json:"weekdays"`
	Times     []string `json:"times"`
	Default   bool     `json:"default"`
}

// listProvidersHandler godoc
// @Summary Listar veterinarios
// @Description Directorio estático con horario de atención. Los slots concretos se consultan en /providers/{providerID}/slots.
// @Tags providers
// @Produce json
// @Success 200 {array} providerResponse
// @Router /providers [get]
func listProvidersHandler(dir *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vets := dir.List()
		out := make([]providerResponse, 0, len(vets))
		for _, v := range vets {
			days := make([]string, 0, len(v.Weekdays))
			for _, wd := range v.Weekdays {
				days = append(days, wd.String())
			}
			out = append(out, providerResponse{
				ID:        v.ID,
				Name:      v.Name,
				Specialty: v.Specialty,
				Rating:    v.Rating,
				Fee:       v.Fee,
				Weekdays:  days,
				Times:     v.Times,
				Default:   v.ID == dir.DefaultProviderID(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
