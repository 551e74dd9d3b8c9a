package endpoints

import (
	"net/http"

	"github.com/cayopay/cayopay-identity/pkg/identity"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/server"
)

// RegisterActorsEndpoints registers the actor listing and removal endpoints
func RegisterActorsEndpoints(s *server.Server) {
	s.Router.Handle("/actors", s.Auth.Middleware(handleListActors(s))).Methods("GET")
	s.Router.Handle("/actors/{id}", s.Auth.Middleware(handleGetActor(s))).Methods("GET")
	s.Router.Handle("/actors/{id}", s.Auth.Middleware(handleRemoveActor(s))).Methods("DELETE")
}

func handleListActors(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		actors, err := s.Directory.ListActors(r.Context(), id.Gate(s.Roles))
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		resp := make([]model.ActorResponse, 0, len(actors))
		for _, a := range actors {
			resp = append(resp, a.ToResponse())
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleGetActor(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		id, _ := identity.Get(r.Context())
		actor, err := s.Directory.GetActor(r.Context(), id.Gate(s.Roles), actorID)
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, actor.ToResponse())
	}
}

func handleRemoveActor(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		id, _ := identity.Get(r.Context())
		if err := s.Directory.Remove(r.Context(), id.Gate(s.Roles), actorID); err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
