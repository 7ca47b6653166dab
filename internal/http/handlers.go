package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks that templates are loaded and the store can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.tracker.Ready(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type indexView struct {
	Today      string
	Categories []core.Category
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := s.render("index.html", indexView{
		Today:      core.Today().ISO(),
		Categories: core.Categories(),
	})
	if err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Failed to render page", err, applog.OpRender, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// render executes a template into memory so a failure never leaves a half-written response.
func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// storageFailure logs err and answers with a 500 fragment.
func (s *Server) storageFailure(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	applog.FromContext(r.Context()).LogError(r.Context(), msg, err, op, nil)
	InternalServerError("Could not read or write the transactions file. Check the server log.").Write(w)
}
