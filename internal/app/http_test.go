package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lingua/api/internal/store"
)

func newGatedStore() *fakeStore {
	currentToken := "token-0"
	fake := &fakeStore{
		getUserByCredentialsFn: nil,
		updateUserTokenFn:      nil,
	}
	fake.getUserByCredentialsFn = func(_ context.Context, session, token string) (store.User, error) {
		if session == "sess" && token == currentToken {
			return store.User{ID: 7, Name: "alice", AccessLevel: 1}, nil
		}
		return store.User{}, sql.ErrNoRows
	}
	fake.updateUserTokenFn = func(_ context.Context, _ int64, token string) error {
		currentToken = token
		return nil
	}
	return fake
}

func doRequest(t *testing.T, server *HTTPServer, method, path, body, session, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session", session)
	}
	if token != "" {
		req.Header.Set("X-Token", token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response body %q: %v", rr.Body.String(), err)
	}
	return rr, payload
}

func TestMissingCredentialsHardFail(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	rr, payload := doRequest(t, server, http.MethodGet, "/api/projects", "", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if payload["status"] != "hard_fail" {
		t.Fatalf("status field = %v, want hard_fail", payload["status"])
	}
	if _, ok := payload["token"]; ok {
		t.Fatalf("hard fail must not hand out a token")
	}
}

func TestTokenRotatesAcrossCalls(t *testing.T) {
	server := NewHTTPServer(newTestService(newGatedStore()), "*")

	rr, payload := doRequest(t, server, http.MethodGet, "/api/projects", "", "sess", "token-0")
	if rr.Code != http.StatusOK {
		t.Fatalf("first call status = %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["status"] != "no_projects" {
		t.Fatalf("status = %v, want no_projects", payload["status"])
	}
	next, _ := payload["token"].(string)
	if next == "" || next == "token-0" {
		t.Fatalf("expected a rotated token, got %q", next)
	}

	// Replaying the consumed token must hard fail; the rotated one works.
	rr, payload = doRequest(t, server, http.MethodGet, "/api/projects", "", "sess", "token-0")
	if rr.Code != http.StatusUnauthorized || payload["status"] != "hard_fail" {
		t.Fatalf("replay: status=%d payload=%v, want 401 hard_fail", rr.Code, payload)
	}

	rr, _ = doRequest(t, server, http.MethodGet, "/api/projects", "", "sess", next)
	if rr.Code != http.StatusOK {
		t.Fatalf("rotated token status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDomainFailureCarriesRotatedToken(t *testing.T) {
	fake := newGatedStore()
	fake.getTargetSegmentFn = func(context.Context, int64) (store.TargetSegment, error) {
		return store.TargetSegment{ID: 5, UserID: 9}, nil
	}
	server := NewHTTPServer(newTestService(fake), "*")

	rr, payload := doRequest(t, server, http.MethodGet, "/api/segments/target/5", "", "sess", "token-0")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
	if payload["status"] != "fail" {
		t.Fatalf("status field = %v, want fail", payload["status"])
	}
	// The failed call still consumed the token; the response must carry
	// the fresh one so the session survives.
	if token, _ := payload["token"].(string); token == "" || token == "token-0" {
		t.Fatalf("domain failure token = %v, want rotated token", payload["token"])
	}
}

func TestRequestsEmptyEnvelope(t *testing.T) {
	server := NewHTTPServer(newTestService(newGatedStore()), "*")

	rr, payload := doRequest(t, server, http.MethodGet, "/api/requests", "", "sess", "token-0")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["status"] != "no_requests" {
		t.Fatalf("status field = %v, want no_requests", payload["status"])
	}
}

func TestLoginRejectsInvalidBody(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	rr, _ := doRequest(t, server, http.MethodPost, "/api/login", `{"email":`, "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	rr, payload := doRequest(t, server, http.MethodGet, "/api/health", "", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if payload["ok"] != true {
		t.Fatalf("health payload = %v", payload)
	}
}

func TestUnknownRouteNotFound(t *testing.T) {
	server := NewHTTPServer(newTestService(newGatedStore()), "*")

	rr, _ := doRequest(t, server, http.MethodGet, "/api/nope", "", "sess", "token-0")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestPatchTargetOverHTTP(t *testing.T) {
	fake := newGatedStore()
	var savedText string
	fake.getTargetSegmentFn = func(context.Context, int64) (store.TargetSegment, error) {
		return store.TargetSegment{ID: 5, Text: "0xSep", UserID: 7}, nil
	}
	fake.updateTargetTextFn = func(_ context.Context, _ int64, text string) error {
		savedText = text
		return nil
	}
	server := NewHTTPServer(newTestService(fake), "*")

	rr, payload := doRequest(t, server, http.MethodPatch, "/api/segments/target/5",
		`{"text":"Hei.0xSepMaailma."}`, "sess", "token-0")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", payload["status"])
	}
	if savedText != "Hei.0xSepMaailma." {
		t.Fatalf("saved text = %q", savedText)
	}
}
