package endpoints

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/identity"
	"github.com/cayopay/cayopay-identity/pkg/invitation"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
	"github.com/cayopay/cayopay-identity/pkg/server"
)

// InviteRequest is the body of POST /invites.
type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AcceptRequest is the body of POST /invites/{token}/accept.
type AcceptRequest struct {
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// InviteCreatedResponse is returned by POST /invites. Delivered is false when
// the invitation was stored but its notification failed.
type InviteCreatedResponse struct {
	Invite    model.InviteResponse `json:"invite"`
	Delivered bool                 `json:"delivered"`
}

// RegisterInvitesEndpoints registers the invitation lifecycle endpoints
func RegisterInvitesEndpoints(s *server.Server) {
	s.Router.Handle("/invites", s.Auth.Middleware(handleListInvites(s))).Methods("GET")
	s.Router.Handle("/invites", s.Auth.Middleware(handleCreateInvite(s))).Methods("POST")
	s.Router.Handle("/invites/{id}", s.Auth.Middleware(handleRevokeInvite(s))).Methods("DELETE")

	// Public: the token is the credential
	s.Router.HandleFunc("/invites/{token}/accept", handleAcceptInvite(s)).Methods("POST")
	s.Router.HandleFunc("/invites/{token}/decline", handleDeclineInvite(s)).Methods("POST")
}

func handleListInvites(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		invites, err := s.Invitations.List(r.Context(), id.Gate(s.Roles))
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		resp := make([]model.InviteResponse, 0, len(invites))
		for i := range invites {
			resp = append(resp, invites[i].ToResponse())
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleCreateInvite(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InviteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validEmail(req.Email) {
			respondWithError(w, http.StatusBadRequest, "invalid email address")
			return
		}
		target, err := role.Parse(req.Role)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		id, _ := identity.Get(r.Context())
		invite, err := s.Invitations.Invite(r.Context(), id.Gate(s.Roles), req.Email, target)
		if err != nil && !(invite != nil && errors.Is(err, errs.ErrNotification)) {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		if err != nil {
			s.Logger.WarnContext(r.Context(), "invitation stored but not delivered", "invite", invite.ID, "error", err)
		}
		respondWithJSON(w, http.StatusCreated, InviteCreatedResponse{
			Invite:    invite.ToResponse(),
			Delivered: err == nil,
		})
	}
}

func handleRevokeInvite(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inviteID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		id, _ := identity.Get(r.Context())
		if err := s.Invitations.Revoke(r.Context(), id.Gate(s.Roles), inviteID); err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAcceptInvite(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AcceptRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validPassword(req.Password) {
			respondWithError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		name := invitation.DisplayName{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
		}
		if name.FirstName == "" || name.LastName == "" {
			respondWithError(w, http.StatusBadRequest, "first_name and last_name are required")
			return
		}

		user, err := s.Invitations.Accept(r.Context(), mux.Vars(r)["token"], credential.NewSecret(req.Password), name)
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, user.ToResponse())
	}
}

func handleDeclineInvite(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Invitations.Decline(r.Context(), mux.Vars(r)["token"]); err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
