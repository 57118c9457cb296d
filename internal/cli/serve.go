package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	qerrors "github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
	"github.com/qbridge/qbridge/pkg/transpile"
)

// serveCommand creates the serve command exposing the HTTP conversion API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion API",
		Long: `Run the HTTP conversion API.

Endpoints:

  POST /v1/convert   {"program": "...", "target": "qasm3"}
  GET  /v1/graph     registered formats and conversions
  GET  /healthz      liveness probe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	t, g, err := c.newTranspiler(noCache)
	if err != nil {
		return fmt.Errorf("initialize transpiler: %w", err)
	}
	defer t.Close()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(c.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/graph", func(w http.ResponseWriter, r *http.Request) {
		edges := make([]map[string]any, 0, g.EdgeCount())
		for _, e := range g.Edges() {
			edges = append(edges, map[string]any{
				"source": e.Source(),
				"target": e.Target(),
				"weight": e.Weight(),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"formats":     g.Registry().Formats(),
			"conversions": edges,
		})
	})

	r.Post("/v1/convert", func(w http.ResponseWriter, r *http.Request) {
		c.handleConvert(t, w, r)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	c.Logger.Info("serving conversion API", "addr", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// convertRequest is the POST /v1/convert body.
type convertRequest struct {
	Program string `json:"program"`
	Target  string `json:"target"`
}

// convertResponse is the successful conversion payload.
type convertResponse struct {
	Program string `json:"program"`
	Target  string `json:"target"`
}

// errorResponse is the error payload with a machine-readable code.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *CLI) handleConvert(t *transpile.Transpiler, w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    string(qerrors.ErrCodeInvalidInput),
			Message: "invalid request body",
		})
		return
	}
	if req.Program == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    string(qerrors.ErrCodeInvalidInput),
			Message: "program and target are required",
		})
		return
	}

	out, err := t.Transpile(r.Context(), req.Program, format.Format(req.Target))
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{
			Code:    string(qerrors.GetCode(err)),
			Message: qerrors.UserMessage(err),
		})
		return
	}

	text, ok := out.(string)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    string(qerrors.ErrCodeInternal),
			Message: fmt.Sprintf("converted program is %T, not text", out),
		})
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{Program: text, Target: req.Target})
}

// statusForError maps engine error codes to HTTP status codes.
func statusForError(err error) int {
	switch qerrors.GetCode(err) {
	case qerrors.ErrCodeUnknownFormat, qerrors.ErrCodeUnsupportedFormat, qerrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case qerrors.ErrCodeNoPath:
		return http.StatusNotFound
	case qerrors.ErrCodeConversionExhausted:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// requestLogger logs each request with a generated request ID.
func (c *CLI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		w.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(ww, r)

		c.Logger.Info("request",
			"id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
