package hub

import "errors"

var (
	// ErrNoClients indicates a verification target project with no live clients.
	ErrNoClients = errors.New("no clients connected")
	// ErrVerificationTimeout indicates no matching response arrived in time.
	ErrVerificationTimeout = errors.New("verification timed out")
	// ErrProjectConflict indicates re-registration under a different project.
	ErrProjectConflict = errors.New("connection already registered to a different project")
	// ErrAlreadyRegistered indicates a duplicate client id in the registry.
	ErrAlreadyRegistered = errors.New("client already registered")
	// ErrPortInUse indicates the listener could not bind its port.
	ErrPortInUse = errors.New("port already in use")
	// ErrNotRunning indicates the hub listener is stopped.
	ErrNotRunning = errors.New("hub is not running")
	// ErrConnClosed indicates a write to a closed connection.
	ErrConnClosed = errors.New("connection closed")
)
