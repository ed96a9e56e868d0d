// Package server runs poolserve's TCP accept loop and connection handler.
//
// A Server owns one listener and one worker pool. Every accepted connection is
// wrapped in a job and handed to the pool; a worker reads a single request,
// writes a single response and closes the connection.
//
// # Lifecycle
//
// A Server moves through three states:
//
//	Created -> Running -> Stopped
//
// Run returns once the state is Running. The accept goroutine waits for that
// transition before building the pool and binding, so Run never blocks on
// network setup. Setup failures are reported through Join, never through Run:
//
//	srv, err := server.Run(server.DefaultServerConfig())
//	if err != nil {
//	    return err
//	}
//	<-srv.Ready()
//	// ...
//	srv.Stop()
//	if err := srv.Join(); err != nil {
//	    return err
//	}
//
// Join waits for Stopped, which is reached when the accept loop exits for any
// reason, including a failed bind. Stop marks the server Stopped and closes the
// listener; jobs already queued still run before Join returns.
//
// # Responses
//
// The handler answers with one of three responses:
//
//   - 200 OK with the file content as body
//   - 404 NOT FOUND with no body
//   - 500 INTERNAL SERVER ERROR with no body, for any per-request failure
package server
