package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/cayopay/cayopay-identity/pkg/server"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string            `json:"status"`
	Database       string            `json:"database"`
	Authenticators map[string]string `json:"authenticators"`
}

// RegisterStatusEndpoints registers the unauthenticated health endpoint
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/health", handleHealth(s)).Methods("GET")
}

func handleHealth(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", Database: "ok", Authenticators: map[string]string{}}
		code := http.StatusOK

		if s.HealthStore != nil {
			if err := s.HealthStore.Ping(ctx); err != nil {
				s.Logger.WarnContext(ctx, "database ping failed", "error", err)
				resp.Status = "unavailable"
				resp.Database = "unreachable"
				code = http.StatusServiceUnavailable
			}
		}

		if s.Authenticators != nil {
			for _, name := range s.Authenticators.Enabled() {
				auth, _ := s.Authenticators.Get(name)
				if err := auth.Status(ctx); err != nil {
					resp.Authenticators[name] = "error"
					continue
				}
				resp.Authenticators[name] = "ok"
			}
		}

		respondWithJSON(w, code, resp)
	}
}
