package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Login is the only route outside the session gate.
	if r.Method == http.MethodPost && r.URL.Path == "/api/login" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		payload, err := s.service.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			s.writeFailure(w, Identity{}, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	// Everything below presents session and token headers. The gate rotates
	// the token, so every response, success or failure, carries the fresh
	// one back to the caller.
	identity, err := s.service.Authenticate(r.Context(), sessionHeader(r), tokenHeader(r))
	if err != nil {
		s.writeFailure(w, Identity{}, err)
		return
	}

	if r.URL.Path == "/api/projects" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.Projects(r.Context(), identity)
			s.respond(w, identity, payload, err)
			return
		case http.MethodPost:
			var body CreateProjectInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
				return
			}
			payload, err := s.service.CreateProject(r.Context(), identity, body)
			s.respond(w, identity, payload, err)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	if r.URL.Path == "/api/requests" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.Requests(r.Context(), identity)
			s.respond(w, identity, payload, err)
			return
		case http.MethodPost:
			var body CreateRequestInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
				return
			}
			payload, err := s.service.CreateRequest(r.Context(), identity, body)
			s.respond(w, identity, payload, err)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/answers" {
		var body CreateAnswerInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		payload, err := s.service.CreateAnswer(r.Context(), identity, body)
		s.respond(w, identity, payload, err)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "projects" {
		if r.Method == http.MethodDelete {
			payload, err := s.service.DeleteProject(r.Context(), identity, parts[2])
			s.respond(w, identity, payload, err)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "projects" && r.Method == http.MethodGet {
		projectID := parts[2]
		switch parts[3] {
		case "segments":
			payload, err := s.service.Segments(r.Context(), identity, projectID)
			s.respond(w, identity, payload, err)
			return
		case "glossary":
			payload, err := s.service.Glossary(r.Context(), identity, projectID)
			s.respond(w, identity, payload, err)
			return
		case "translation":
			payload, err := s.service.ProjectTranslation(r.Context(), identity, projectID)
			s.respond(w, identity, payload, err)
			return
		}
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "segments" && parts[2] == "source" {
		if r.Method == http.MethodGet {
			payload, err := s.service.SourceSegment(r.Context(), identity, parts[3])
			s.respond(w, identity, payload, err)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "segments" && parts[2] == "target" {
		segmentID := parts[3]
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.TargetSegment(r.Context(), identity, segmentID)
			s.respond(w, identity, payload, err)
			return
		case http.MethodPatch:
			var body PatchSegmentInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
				return
			}
			payload, err := s.service.PatchTargetSegment(r.Context(), identity, segmentID, body)
			s.respond(w, identity, payload, err)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	if len(parts) == 5 && parts[0] == "api" && parts[1] == "segments" && parts[2] == "target" && r.Method == http.MethodPost {
		segmentID := parts[3]
		switch parts[4] {
		case "assign":
			payload, err := s.service.AssignSegment(r.Context(), identity, segmentID)
			s.respond(w, identity, payload, err)
			return
		case "unassign":
			payload, err := s.service.UnassignSegment(r.Context(), identity, segmentID)
			s.respond(w, identity, payload, err)
			return
		}
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "requests" && r.Method == http.MethodPatch {
		payload, err := s.service.CloseRequest(r.Context(), identity, parts[2])
		s.respond(w, identity, payload, err)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) respond(w http.ResponseWriter, identity Identity, payload map[string]any, err error) {
	if err != nil {
		s.writeFailure(w, identity, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// writeFailure renders the error envelope. Credential mismatches are
// terminal: hard_fail, no token, nothing else. Domain failures still hand
// the rotated token back so the caller can continue the session.
func (s *HTTPServer) writeFailure(w http.ResponseWriter, identity Identity, err error) {
	if errors.Is(err, ErrHardFail) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "hard_fail"})
		return
	}

	response := map[string]any{"status": "fail"}
	if identity.Token != "" {
		response["token"] = identity.Token
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		response["code"] = domainErr.Code
		response["error"] = domainErr.Message
		writeJSON(w, domainErr.Status, response)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		response["code"] = "NOT_FOUND"
		response["error"] = "Not found"
		writeJSON(w, http.StatusNotFound, response)
		return
	}

	log.Printf("request failed: %v", err)
	response["code"] = "SERVER_ERROR"
	response["error"] = "Server error"
	writeJSON(w, http.StatusInternalServerError, response)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Session, X-Token, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"status": "fail",
		"code":   code,
		"error":  message,
	})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func sessionHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Session"))
}

func tokenHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Token"))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
