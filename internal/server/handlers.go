package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonathan/fitness-coach/internal/export"
	"github.com/jonathan/fitness-coach/internal/persistence"
	"github.com/jonathan/fitness-coach/internal/pipeline"
	"github.com/jonathan/fitness-coach/internal/server/middleware"
	"github.com/jonathan/fitness-coach/internal/stream"
	"github.com/jonathan/fitness-coach/internal/types"
)

const (
	maxRequestBody = 1 << 20
	// wsRequestWait bounds how long a WebSocket client may take to send its request
	wsRequestWait = 30 * time.Second
)

// ProgramResponse is the body of GET /programs/{id}
type ProgramResponse struct {
	Program *types.Program `json:"program"`
}

// handleGenerateStream runs a new generation and streams progress via SSE
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	opts, err := s.generateOptions(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.streamSSE(w, r, opts)
}

// handleModifyStream regenerates an existing program and streams progress via SSE
func (s *Server) handleModifyStream(w http.ResponseWriter, r *http.Request) {
	var req types.ModifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	opts, err := s.modifyOptions(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.streamSSE(w, r, opts)
}

// handleGetProgram returns a persisted program graph
func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	program, ok := s.loadProgram(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, ProgramResponse{Program: program})
}

// handleExportProgram returns a persisted program as a spreadsheet
func (s *Server) handleExportProgram(w http.ResponseWriter, r *http.Request) {
	program, ok := s.loadProgram(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, program); err != nil {
		s.writeError(w, fmt.Errorf("failed to export program: %w", err))
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="program-%s.xlsx"`, r.PathValue("id")))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[export] failed to write workbook: %v", err)
	}
}

// loadProgram resolves the {id} path value to a program the caller owns.
// On failure the response has been written.
func (s *Server) loadProgram(w http.ResponseWriter, r *http.Request) (*types.Program, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid program ID format")
		return nil, false
	}

	graph, err := s.store.GetProgramGraph(r.Context(), id)
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to load program: %w", err))
		return nil, false
	}
	if graph == nil {
		s.writeError(w, &ErrProgramNotFound{ProgramID: id})
		return nil, false
	}
	if err := s.checkOwner(r.Context(), graph.Program.UserID); err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return persistence.ToProgram(graph), true
}

// streamSSE opens the event stream and runs the pipeline on it. The run's
// context ends when the client disconnects.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, opts pipeline.RunOptions) {
	sse, err := stream.NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := sse.WriteComment("stream open"); err != nil {
		log.Printf("[stream] client gone before run started: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sse.KeepAlive(ctx, s.keepAlive)
	}()

	s.run(ctx, opts, stream.New(sse))

	// The keepalive goroutine must not write after the handler returns
	cancel()
	wg.Wait()
}

// handleStreamWS runs a generation over a WebSocket. The first client message
// is a StreamRequest; every following frame is an event envelope.
func (s *Server) handleStreamWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] websocket upgrade failed: %v", err)
		return
	}
	writer := stream.NewWSWriter(conn)
	defer func() { _ = writer.Close() }()

	conn.SetReadLimit(maxRequestBody)
	_ = conn.SetReadDeadline(time.Now().Add(wsRequestWait))
	var req types.StreamRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Printf("[stream] failed to read websocket request: %v", err)
		_ = stream.New(writer).Fail("invalid request: " + err.Error())
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	var opts pipeline.RunOptions
	switch req.Mode {
	case types.ModeModify:
		opts, err = s.modifyOptions(r.Context(), &req.ModifyRequest)
	case types.ModeGenerate:
		opts, err = s.generateOptions(r.Context(), req.GenerateRequest())
	default:
		err = &ErrValidation{Field: "mode", Message: fmt.Sprintf("must be %q or %q", types.ModeGenerate, types.ModeModify)}
	}
	if err != nil {
		message := err.Error()
		if HTTPStatus(err) == http.StatusInternalServerError {
			log.Printf("[server] internal error: %v", err)
			message = "internal server error"
		}
		_ = stream.New(writer).Fail(message)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	// Reader: any read error means the client went away
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		writer.KeepAlive(ctx, 0)
	}()

	s.run(ctx, opts, stream.New(writer))

	cancel()
	// Closing the connection unblocks the reader
	_ = writer.Close()
	wg.Wait()
}

// run executes the pipeline. Failures have already been written to out.
func (s *Server) run(ctx context.Context, opts pipeline.RunOptions, out *stream.Stream) {
	if _, err := s.runner.Run(ctx, opts, out); err != nil {
		log.Printf("[server] run for user %s failed: %v", opts.UserID, err)
	}
}

// generateOptions validates a generation request and builds its run options
func (s *Server) generateOptions(ctx context.Context, req *types.GenerateRequest) (pipeline.RunOptions, error) {
	if err := req.Validate(); err != nil {
		return pipeline.RunOptions{}, &ErrValidation{Message: err.Error()}
	}
	if err := s.authorize(ctx, req.UserID); err != nil {
		return pipeline.RunOptions{}, err
	}
	return pipeline.RunOptions{
		UserID:  req.UserID,
		Profile: *req.IntakeProfile(),
		Context: req.Context,
	}, nil
}

// modifyOptions validates a modification request and builds its run options.
// When the submitted program exists in storage, ownership and the phase count
// are taken from the stored copy.
func (s *Server) modifyOptions(ctx context.Context, req *types.ModifyRequest) (pipeline.RunOptions, error) {
	if err := req.Validate(); err != nil {
		return pipeline.RunOptions{}, &ErrValidation{Message: err.Error()}
	}
	if err := s.authorize(ctx, req.UserID); err != nil {
		return pipeline.RunOptions{}, err
	}

	current := req.CurrentProgram
	current.UserID = req.UserID
	phaseCount := 0

	if current.ID != nil {
		graph, err := s.store.GetProgramGraph(ctx, *current.ID)
		if err != nil {
			return pipeline.RunOptions{}, fmt.Errorf("failed to load current program: %w", err)
		}
		switch {
		case graph != nil:
			if graph.Program.UserID != req.UserID {
				return pipeline.RunOptions{}, &ErrForbidden{Reason: "program belongs to another user"}
			}
			stored := persistence.ToProgram(graph)
			phaseCount = stored.TotalPhases
			if len(current.Phases) == 0 {
				current.Phases = stored.Phases
				current.TotalPhases = stored.TotalPhases
			}
			if current.Meta.Name == "" {
				current.Meta = stored.Meta
			}
		case len(current.Phases) == 0:
			return pipeline.RunOptions{}, &ErrProgramNotFound{ProgramID: *current.ID}
		}
	}

	return pipeline.RunOptions{
		UserID:              req.UserID,
		Profile:             *req.IntakeProfile(),
		Context:             req.Context,
		CurrentProgram:      &current,
		ModificationRequest: req.ModificationRequest,
		PhaseCount:          phaseCount,
	}, nil
}

// authorize checks that the caller acts for userID and that the access policy allows generation
func (s *Server) authorize(ctx context.Context, userID uuid.UUID) error {
	if err := s.checkOwner(ctx, userID); err != nil {
		return err
	}
	allowed, err := s.access.CanGenerate(ctx, userID)
	if err != nil {
		return fmt.Errorf("access check failed: %w", err)
	}
	if !allowed {
		return &ErrAccessDenied{UserID: userID}
	}
	return nil
}

// checkOwner rejects requests whose token user differs from userID. It is a
// no-op when authentication is disabled.
func (s *Server) checkOwner(ctx context.Context, userID uuid.UUID) error {
	if s.jwtService == nil {
		return nil
	}
	authUser, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return &ErrForbidden{Reason: "no authenticated user"}
	}
	if authUser != userID {
		return &ErrForbidden{Reason: "token user does not match request user"}
	}
	return nil
}

// checkOrigin applies the CORS origin list to WebSocket upgrades
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// decodeBody reads a bounded JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err == io.EOF {
			return &ErrValidation{Message: "request body is required"}
		}
		return &ErrValidation{Message: "Invalid request body: " + err.Error()}
	}
	// Reading to EOF lets net/http watch the connection, so a disconnect cancels the run
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}
