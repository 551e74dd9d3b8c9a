// Package server provides the HTTP server for the identity API.
//
// It uses gorilla/mux for routing and gorilla/handlers for access logging.
// The Server holds the core services; the endpoints subpackage registers
// handlers on its router and the middleware subpackage authenticates
// requests.
//
// # Server Setup
//
//	srv := server.NewServer(cfg, server.Services{...}, os.Stdout)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
package server
