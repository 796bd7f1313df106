package gds

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshakeTimeout indicates the initialize exchange did not complete
	// within the configured timeout. The session is Failed; the child process
	// has been terminated.
	ErrHandshakeTimeout = errors.New("gds: handshake timeout")

	// ErrSessionClosed indicates the session was closed while a request was
	// pending, or an RPC was attempted after close.
	ErrSessionClosed = errors.New("gds: session closed")
)

// TransportError is an unrecoverable transport failure: broken pipe,
// malformed frame, or unexpected process exit. It forces the session into
// the Failed state and cancels all pending requests.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gds: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StateError reports an RPC attempted while the session was not in a state
// that permits it. Calls never queue waiting for a state change.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("gds: %s not allowed in state %s", e.Op, e.State)
}

// ToolError is a failure reported by the remote tool itself via the result
// payload's isError flag. The session stays Ready.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("gds: tool %s failed: %s", e.Tool, e.Message)
}

// RPCError is a JSON-RPC error object returned by the server for a request
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("gds: rpc error %d: %s", e.Code, e.Message)
}
