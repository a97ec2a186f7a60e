package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

// PolicyLister reports the configured policies.
type PolicyLister interface {
	Policies() []ratelimit.Policy
}

// Pinger checks the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type policyView struct {
	ID        string              `json:"id"`
	Algorithm ratelimit.Algorithm `json:"algorithm"`
	Limit     int64               `json:"limit,omitempty"`
	Capacity  int64               `json:"capacity,omitempty"`
	Rate      int64               `json:"rate,omitempty"`
	Period    string              `json:"period,omitempty"`
	Window    string              `json:"window,omitempty"`
	SubWindow string              `json:"sub_window,omitempty"`
	Path      string              `json:"path"`
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// AcceptedHandler answers the demo endpoints once the limiter let the request
// through.
func AcceptedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message":   "Request accepted",
		"path":      r.URL.Path,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// StatusHandler lists every policy and the endpoint it guards.
func StatusHandler(l PolicyLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policies := l.Policies()
		views := make([]policyView, 0, len(policies))
		for _, p := range policies {
			views = append(views, policyView{
				ID:        p.ID,
				Algorithm: p.Algorithm,
				Limit:     p.Limit,
				Capacity:  p.Capacity,
				Rate:      p.Rate,
				Period:    durationString(p.Period),
				Window:    durationString(p.Window),
				SubWindow: durationString(p.SubWindow),
				Path:      PolicyPath(p.ID),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"time":     time.Now().Format(time.RFC3339),
			"policies": views,
		})
	}
}

// HealthHandler reports 503 while the store does not answer.
func HealthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// PolicyPath is the demo endpoint guarded by policy id.
func PolicyPath(id string) string {
	return "/rate-limiter/" + id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
