// Package rpc frames requests, responses and notifications as
// newline-delimited JSON over a byte stream, normally the process's
// stdin/stdout. All logging must go to stderr: stdout is the wire.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
)

// maxLineSize bounds one framed message; generous enough for large saved
// queries and schema payloads.
const maxLineSize = 16 * 1024 * 1024

// Request is one inbound message. A missing id marks a notification; no
// response is sent for those.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one outbound reply.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Notification is a server-initiated message; it carries no id.
type Notification struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Error is the wire error shape.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Wire error codes. The -32xxx range follows JSON-RPC conventions; the
// -320xx block carries this application's taxonomy.
const (
	CodeParseError    = -32700
	CodeUnknownMethod = -32601
	CodeBadRequest    = -32602
	CodeInternal      = -32603
	CodeNotFound      = -32004
	CodeConflict      = -32009
)

// DispatchFunc routes one request to the application layer.
type DispatchFunc func(ctx context.Context, method string, params json.RawMessage) (any, error)

// Server reads requests from in and writes responses and notifications
// to out. Writes are serialized so concurrent handlers never interleave
// frames.
type Server struct {
	in       io.Reader
	out      io.Writer
	dispatch DispatchFunc
	logger   *zap.Logger

	writeMu sync.Mutex
}

func NewServer(in io.Reader, out io.Writer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{in: in, out: out, logger: logger}
}

// SetDispatcher installs the application dispatch function. Must be
// called before Run.
func (s *Server) SetDispatcher(d DispatchFunc) { s.dispatch = d }

// Run processes the inbound stream until EOF or ctx cancellation. Each
// request runs in its own goroutine so a long-running call never blocks
// a cancel request behind it.
func (s *Server) Run(ctx context.Context) error {
	if s.dispatch == nil {
		return errors.New("rpc: no dispatcher installed")
	}

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("Unparseable request frame", zap.Error(err))
			s.write(Response{ID: nil, Error: &Error{Code: CodeParseError, Message: "parse error"}})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, req)
		}()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request stream: %w", err)
	}
	return nil
}

func (s *Server) handle(ctx context.Context, req Request) {
	result, err := s.dispatch(ctx, req.Method, req.Params)
	if len(req.ID) == 0 {
		// Notification from the client: nothing to reply, but a failed
		// one is worth a log line.
		if err != nil {
			s.logger.Warn("Notification handler failed",
				zap.String("method", req.Method), zap.Error(err))
		}
		return
	}

	resp := Response{ID: req.ID}
	if err != nil {
		resp.Error = &Error{Code: codeFor(err), Message: err.Error()}
	} else {
		resp.Result = result
	}
	s.write(resp)
}

// Notify pushes a server-initiated notification to the client.
func (s *Server) Notify(method string, params any) {
	s.write(Notification{Method: method, Params: params})
}

func (s *Server) write(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Unmarshalable outbound message", zap.Error(err))
		return
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		s.logger.Warn("Write to client failed", zap.Error(err))
	}
}

// codeFor maps application errors onto wire codes.
func codeFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUnknownMethod):
		return CodeUnknownMethod
	case errors.Is(err, apperrors.ErrBadRequest):
		return CodeBadRequest
	case errors.Is(err, apperrors.ErrDatabaseNotFound),
		errors.Is(err, apperrors.ErrProjectNotFound),
		errors.Is(err, apperrors.ErrMigrationNotFound):
		return CodeNotFound
	case errors.Is(err, apperrors.ErrMigrationApplied):
		return CodeConflict
	default:
		return CodeInternal
	}
}
