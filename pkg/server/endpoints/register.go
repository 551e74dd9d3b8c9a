package endpoints

import "github.com/cayopay/cayopay-identity/pkg/server"

// RegisterAll registers every endpoint on s.
func RegisterAll(s *server.Server) {
	RegisterStatusEndpoints(s)
	RegisterAuthEndpoints(s)
	RegisterUsersEndpoints(s)
	RegisterActorsEndpoints(s)
	RegisterInvitesEndpoints(s)
}
