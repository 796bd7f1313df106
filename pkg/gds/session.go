package gds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/logging"
)

// State is the lifecycle state of a Session
type State int

const (
	StateNotStarted State = iota
	StateLaunching
	StateAwaitingHandshake
	StateReady
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLaunching:
		return "launching"
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultHandshakeTimeout bounds the initialize exchange. A hung child
// process must never block the caller indefinitely.
const DefaultHandshakeTimeout = 15 * time.Second

// Config holds the launch parameters for a tool server session
type Config struct {
	// Command is the tool server executable, resolved via PATH
	Command string
	// Args is the argument vector passed to the executable
	Args []string
	// Env is the complete environment of the child process. Nothing from
	// the parent's environment is inherited.
	Env map[string]string
	// HandshakeTimeout bounds the initialize exchange; DefaultHandshakeTimeout
	// when zero
	HandshakeTimeout time.Duration
	// Logger receives session and child-stderr diagnostics
	Logger logging.Logger
}

type outcome struct {
	resp *response
	err  error
}

// Session owns exactly one tool server child process and multiplexes RPCs
// over its stdio pipes. A dedicated read loop demultiplexes inbound frames
// to waiting callers by request ID; state transitions and the pending table
// are guarded by one mutex so the read loop and the send path never race.
//
// Tool calls are serialized: at most one tools/call is on the wire at a
// time, because the tool server is assumed stateful and single-threaded.
type Session struct {
	cfg    Config
	logger logging.Logger

	nextID atomic.Int64

	// launch spawns the child process; swapped out in tests
	launch func() (frameTransport, error)

	mu        sync.Mutex
	state     State
	pending   map[int64]chan outcome
	transport frameTransport
	catalog   []interfaces.ToolDescriptor
	failErr   error

	callGate chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// NewSession creates a session in the NotStarted state
func NewSession(cfg Config) *Session {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New()
	}
	s := &Session{
		cfg:      cfg,
		logger:   logger,
		state:    StateNotStarted,
		pending:  make(map[int64]chan outcome),
		callGate: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.launch = func() (frameTransport, error) {
		return startTransport(cfg.Command, cfg.Args, cfg.Env, logger)
	}
	return s
}

// State returns the session's current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the child process and performs the initialize handshake.
// The handshake timeout is enforced by a watchdog timer independent of the
// read loop, so a child that writes nothing can never hang the caller. On
// any failure the session ends up Failed (or Closed) and the child is gone.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateNotStarted {
		state := s.state
		s.mu.Unlock()
		return &StateError{Op: "start", State: state}
	}
	s.state = StateLaunching
	s.mu.Unlock()

	s.logger.Info(ctx, "Launching tool server", map[string]interface{}{
		"command":   s.cfg.Command,
		"args":      s.cfg.Args,
		"env_count": len(s.cfg.Env),
	})

	transport, err := s.launch()
	if err != nil {
		launchErr := &TransportError{Op: "launch", Err: err}
		s.fail(launchErr)
		return launchErr
	}

	s.mu.Lock()
	if s.state != StateLaunching {
		// Closed (or failed) while spawning
		state := s.state
		s.mu.Unlock()
		transport.Close()
		if state == StateClosed {
			return ErrSessionClosed
		}
		return s.failureReason()
	}
	s.transport = transport
	s.state = StateAwaitingHandshake
	s.mu.Unlock()

	go s.readLoop(transport)

	if err := s.handshake(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingHandshake {
		if s.state == StateClosed {
			return ErrSessionClosed
		}
		return s.failErr
	}
	s.state = StateReady
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: "graphmind", Version: "0.1.0"},
	}

	ch, id, err := s.send(methodInitialize, params)
	if err != nil {
		s.fail(err)
		return err
	}

	watchdog := time.NewTimer(s.cfg.HandshakeTimeout)
	defer watchdog.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			return out.err
		}
		if out.resp.Error != nil {
			err := fmt.Errorf("gds: initialize rejected: %w", out.resp.Error)
			s.fail(err)
			return err
		}
		var result initializeResult
		if err := json.Unmarshal(out.resp.Result, &result); err != nil {
			failErr := &TransportError{Op: "initialize", Err: err}
			s.fail(failErr)
			return failErr
		}
		s.logger.Info(ctx, "Tool server handshake complete", map[string]interface{}{
			"server_name":      result.ServerInfo.Name,
			"server_version":   result.ServerInfo.Version,
			"protocol_version": result.ProtocolVersion,
		})
		if err := s.notify(methodInitialized); err != nil {
			s.fail(err)
			return err
		}
		return nil

	case <-watchdog.C:
		s.detach(id)
		s.fail(ErrHandshakeTimeout)
		return ErrHandshakeTimeout

	case <-ctx.Done():
		s.detach(id)
		_ = s.Close()
		return fmt.Errorf("gds: handshake: %w", ctx.Err())
	}
}

// ListTools fetches the tool catalog, caching it for the session's lifetime.
// Valid only in the Ready state.
func (s *Session) ListTools(ctx context.Context) ([]interfaces.ToolDescriptor, error) {
	s.mu.Lock()
	if s.state == StateReady && s.catalog != nil {
		catalog := s.catalog
		s.mu.Unlock()
		return catalog, nil
	}
	s.mu.Unlock()

	resp, err := s.call(ctx, "tools/list", methodListTools, nil)
	if err != nil {
		return nil, err
	}

	var result listToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("gds: decoding tool catalog: %w", err)
	}

	catalog := make([]interfaces.ToolDescriptor, 0, len(result.Tools))
	for _, tool := range result.Tools {
		catalog = append(catalog, interfaces.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	s.mu.Lock()
	if s.state == StateReady {
		s.catalog = catalog
	}
	s.mu.Unlock()

	s.logger.Debug(ctx, "Tool catalog fetched", map[string]interface{}{
		"tool_count": len(catalog),
	})
	return catalog, nil
}

// CallTool invokes a tool and returns its textual content payload. Valid
// only in the Ready state; calls are serialized per session. If the tool's
// input schema is known, arguments are validated before anything is sent
// on the wire.
//
// A ctx deadline detaches this caller only. The transport has no
// cancellation primitive, so the remote computation runs to completion
// regardless; its eventual response is dropped as unmatched.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}

	if descriptor, ok := s.descriptor(name); ok {
		if err := ValidateArguments(descriptor, args); err != nil {
			return "", err
		}
	}

	select {
	case s.callGate <- struct{}{}:
		defer func() { <-s.callGate }()
	case <-ctx.Done():
		return "", fmt.Errorf("gds: tools/call %s: %w", name, ctx.Err())
	case <-s.done:
		return "", s.failureReason()
	}

	resp, err := s.call(ctx, "tools/call", methodCallTool, callToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", fmt.Errorf("gds: decoding tool result: %w", err)
	}
	if result.IsError {
		return "", &ToolError{Tool: name, Message: result.text()}
	}
	return result.text(), nil
}

// Close terminates the child process and cancels all pending requests with
// ErrSessionClosed. Idempotent: closing twice, or closing a session already
// in Failed, does nothing further.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateFailed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.catalog = nil
	transport := s.transport
	s.transport = nil
	waiting := s.takePendingLocked()
	s.mu.Unlock()

	for _, ch := range waiting {
		ch <- outcome{err: ErrSessionClosed}
	}
	if transport != nil {
		transport.Close()
	}
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

// call performs one correlated RPC in the Ready state
func (s *Session) call(ctx context.Context, op, method string, params any) (*response, error) {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		switch state {
		case StateClosed:
			return nil, ErrSessionClosed
		case StateFailed:
			return nil, s.failureReason()
		default:
			return nil, &StateError{Op: op, State: state}
		}
	}
	s.mu.Unlock()

	ch, id, err := s.send(method, params)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		if out.resp.Error != nil {
			return nil, fmt.Errorf("gds: %s: %w", op, out.resp.Error)
		}
		return out.resp, nil
	case <-ctx.Done():
		// Detach the caller; the session and the in-flight remote call
		// are left to finish or fail on their own.
		s.detach(id)
		return nil, fmt.Errorf("gds: %s: %w", op, ctx.Err())
	}
}

// send registers a pending entry and writes the request frame. Request IDs
// are monotonically increasing and never reused within a session.
func (s *Session) send(method string, params any) (chan outcome, int64, error) {
	id := s.nextID.Add(1)
	ch := make(chan outcome, 1)

	s.mu.Lock()
	transport := s.transport
	if transport == nil {
		s.mu.Unlock()
		return nil, 0, ErrSessionClosed
	}
	s.pending[id] = ch
	s.mu.Unlock()

	frame, err := json.Marshal(request{JSONRPC: "2.0", ID: &id, Method: method, Params: params})
	if err != nil {
		s.detach(id)
		return nil, 0, fmt.Errorf("gds: encoding %s request: %w", method, err)
	}
	if err := transport.WriteFrame(frame); err != nil {
		s.detach(id)
		return nil, 0, err
	}
	return ch, id, nil
}

// notify writes a notification frame (no ID, no response expected)
func (s *Session) notify(method string) error {
	s.mu.Lock()
	transport := s.transport
	s.mu.Unlock()
	if transport == nil {
		return ErrSessionClosed
	}

	frame, err := json.Marshal(request{JSONRPC: "2.0", Method: method})
	if err != nil {
		return fmt.Errorf("gds: encoding %s notification: %w", method, err)
	}
	return transport.WriteFrame(frame)
}

// readLoop runs for the lifetime of the session, demultiplexing inbound
// frames to pending callers by ID. It never blocks on a caller: delivery
// channels are buffered and written exactly once. Protocol violations
// (duplicate or unmatched IDs) are logged and dropped.
func (s *Session) readLoop(transport frameTransport) {
	ctx := context.Background()
	for {
		frame, err := transport.ReadFrame()
		if err != nil {
			s.mu.Lock()
			closed := s.state == StateClosed
			s.mu.Unlock()
			if closed {
				return
			}
			if err == io.EOF {
				err = &TransportError{Op: "read", Err: fmt.Errorf("tool server exited")}
			}
			s.fail(err)
			return
		}

		var msg response
		if err := json.Unmarshal(frame, &msg); err != nil {
			s.fail(&TransportError{Op: "decode", Err: err})
			return
		}

		if msg.ID == nil {
			// Server-initiated notification; nothing correlates to it
			s.logger.Debug(ctx, "Tool server notification", map[string]interface{}{
				"method": msg.Method,
			})
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[*msg.ID]
		if ok {
			delete(s.pending, *msg.ID)
		}
		s.mu.Unlock()

		if !ok {
			s.logger.Warn(ctx, "Dropping response with unmatched request id", map[string]interface{}{
				"id": *msg.ID,
			})
			continue
		}
		ch <- outcome{resp: &msg}
	}
}

// fail moves the session to Failed, cancels all pending requests and
// terminates the child. Closed is terminal; failing a closed session is
// a no-op.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.failErr = err
	s.catalog = nil
	transport := s.transport
	s.transport = nil
	waiting := s.takePendingLocked()
	s.mu.Unlock()

	s.logger.Error(context.Background(), "Tool server session failed", map[string]interface{}{
		"error": err.Error(),
	})

	for _, ch := range waiting {
		ch <- outcome{err: err}
	}
	if transport != nil {
		transport.Close()
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// detach removes a pending entry after its caller gave up waiting
func (s *Session) detach(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Session) takePendingLocked() []chan outcome {
	waiting := make([]chan outcome, 0, len(s.pending))
	for id, ch := range s.pending {
		waiting = append(waiting, ch)
		delete(s.pending, id)
	}
	return waiting
}

func (s *Session) failureReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	return ErrSessionClosed
}

func (s *Session) descriptor(name string) (interfaces.ToolDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tool := range s.catalog {
		if tool.Name == name {
			return tool, true
		}
	}
	return interfaces.ToolDescriptor{}, false
}
