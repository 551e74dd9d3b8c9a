package endpoints

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cayopay/cayopay-identity/pkg/identity"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
	"github.com/cayopay/cayopay-identity/pkg/server"
)

// RoleUpdateRequest is the body of PATCH /users/{id}/role.
type RoleUpdateRequest struct {
	Role string `json:"role"`
}

// RegisterUsersEndpoints registers the principal directory endpoints
func RegisterUsersEndpoints(s *server.Server) {
	s.Router.Handle("/users", s.Auth.Middleware(handleListUsers(s))).Methods("GET")
	s.Router.Handle("/users/{id}", s.Auth.Middleware(handleGetUser(s))).Methods("GET")
	s.Router.Handle("/users/{id}/role", s.Auth.Middleware(handleUpdateRole(s))).Methods("PATCH")
}

func handleListUsers(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		users, err := s.Directory.List(r.Context(), id.Gate(s.Roles))
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		resp := make([]model.UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, users[i].ToResponse())
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleGetUser(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		id, _ := identity.Get(r.Context())
		user, err := s.Directory.Get(r.Context(), id.Gate(s.Roles), userID)
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, user.ToResponse())
	}
}

func handleUpdateRole(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		var req RoleUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		target, err := role.Parse(req.Role)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		id, _ := identity.Get(r.Context())
		user, err := s.Directory.UpdateRole(r.Context(), id.Gate(s.Roles), userID, target)
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, user.ToResponse())
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondWithError(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}
	return id, true
}
