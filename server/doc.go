// Package server implements the command interpreter of the file transfer
// protocol.
//
// # Overview
//
// The interpreter accepts a control connection, greets the requester and
// then loops: it writes the ">>" prompt, reads one command line and executes
// it. Commands are:
//
//	pwd             print the session's working directory
//	list            send the working directory's entry names on a data connection
//	cd <directory>  change the session's working directory
//	get <filename>  send the file's bytes on a data connection
//	exit            end the session
//
// For list and get the interpreter opens a fresh data connection to the
// requester's host on the data port (30020 by default), writes the payload
// and closes the connection to mark the end of it. Status and errors always
// travel on the control connection.
//
// # Getting Started
//
//	driver, err := server.NewFSDriver("/srv/files")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := server.NewServer(":30021", server.WithDriver(driver))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	log.Fatal(s.ListenAndServe())
//
// # Sessions
//
// Each session has its own working directory, kept by the ClientContext its
// Driver returns; the process working directory is never changed. By default
// one session is served at a time and further control connections wait in
// the listen backlog. Use WithMaxSessions to serve several at once.
//
// A failure in a session (a read error, an oversized command line, a broken
// data connection) ends at most that session. The server keeps accepting.
//
// # Drivers
//
// FSDriver serves the local filesystem starting in a root directory. The
// root is where sessions start, not a jail: cd may leave it. Implement Driver
// and ClientContext to serve something else.
//
// # Observability
//
// The server logs with log/slog. Pass a logger with WithLogger. Counters can
// be collected by implementing MetricsCollector and passing it with
// WithMetricsCollector.
//
// # Shutdown
//
// Shutdown closes the listener, sends "Server closed connection." to every
// live session, closes their connections and waits for them to end.
package server
