package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"lingua/api/internal/auth"
	"lingua/api/internal/authpw"
	"lingua/api/internal/export"
	"lingua/api/internal/rbac"
	"lingua/api/internal/segment"
	"lingua/api/internal/session"
	"lingua/api/internal/store"
)

// Identity is the authenticated caller for one request cycle. It is built
// by the session gate, never mutated afterwards, and carries the freshly
// rotated token every response must return.
type Identity struct {
	UserID int64
	Name   string
	Role   rbac.Role
	Token  string
}

type CreateProjectInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Glossary    string   `json:"glossary"`
	Segments    []string `json:"segments"`
}

type PatchSegmentInput struct {
	Text     *string `json:"text"`
	Complete *string `json:"complete"`
}

type CreateRequestInput struct {
	Text      string `json:"text"`
	Context   string `json:"context"`
	ProjectID string `json:"project_id"`
	SegmentID string `json:"segment_id"`
}

type CreateAnswerInput struct {
	Text      string `json:"text"`
	ProjectID string `json:"project_id"`
	SegmentID string `json:"segment_id"`
	RequestID string `json:"request_id"`
}

// Source previews in segment listings are bounded to keep responses small;
// full text comes from the source/target segment calls.
const previewRunes = 250

type dataStore interface {
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByCredentials(context.Context, string, string) (store.User, error)
	UpdateUserCredentials(context.Context, int64, string, string) error
	UpdateUserToken(context.Context, int64, string) error
	GetUserName(context.Context, int64) (string, error)
	ListProjects(context.Context) ([]store.Project, error)
	GetProject(context.Context, int64) (store.Project, error)
	CreateProject(context.Context, store.Project) (int64, error)
	DeleteProject(context.Context, int64) error
	GetProjectGlossary(context.Context, int64) (string, error)
	CreateSegmentPair(context.Context, int64, string, string) (int64, error)
	ListSourceSegments(context.Context, int64) ([]store.SourceSegment, error)
	GetSourceSegment(context.Context, int64) (store.SourceSegment, error)
	GetTargetSegment(context.Context, int64) (store.TargetSegment, error)
	UpdateTargetText(context.Context, int64, string) error
	UpdateTargetComplete(context.Context, int64, bool) error
	ClaimSegment(context.Context, int64, int64) (bool, error)
	ReleaseSegment(context.Context, int64) error
	ListTargetTexts(context.Context, int64) ([]string, error)
	CreateRequest(context.Context, store.Request) (int64, error)
	ListOpenRequests(context.Context) ([]store.Request, error)
	GetRequest(context.Context, int64) (store.Request, error)
	CloseRequest(context.Context, int64) (bool, error)
	CreateAnswer(context.Context, store.Answer) (int64, error)
	ListAnswers(context.Context, int64) ([]store.Answer, error)
	Ping(ctx context.Context) error
}

type credentialCache interface {
	Put(context.Context, string, session.Entry) error
	Lookup(context.Context, string) (*session.Entry, error)
	Invalidate(context.Context, string) error
}

type Service struct {
	store dataStore
	cache credentialCache
}

func New(dataStore *store.PostgresStore) *Service {
	return &Service{store: dataStore}
}

// NewWithSessionCache layers the Redis credential cache over the store.
// Postgres remains authoritative; a stale or missing cache entry falls
// back to the store lookup.
func NewWithSessionCache(dataStore *store.PostgresStore, cache *session.Cache) *Service {
	return &Service{store: dataStore, cache: cache}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func okEnvelope(id Identity, fields map[string]any) map[string]any {
	payload := map[string]any{"status": "ok", "token": id.Token}
	for key, value := range fields {
		payload[key] = value
	}
	return payload
}

// Login authenticates by email and password, issues a brand-new session
// identifier and token, and persists both.
func (s *Service) Login(ctx context.Context, email, password string) (map[string]any, error) {
	if !looksLikeEmail(email) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid email address provided")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHardFail
	}
	if err != nil {
		return nil, err
	}
	if !authpw.Verify(user.PasswordHash, password) {
		return nil, ErrHardFail
	}

	sessionID := auth.NewSession()
	token := auth.NewToken()
	if err := s.store.UpdateUserCredentials(ctx, user.ID, sessionID, token); err != nil {
		return nil, err
	}
	s.cacheCredentials(ctx, sessionID, user.ID, user.Name, user.AccessLevel, token)

	return map[string]any{
		"status":       "ok",
		"session":      sessionID,
		"token":        token,
		"access_level": user.AccessLevel,
	}, nil
}

// Authenticate is the session gate for every other operation: it matches
// the presented session and token, rotates the token, and returns the
// caller's identity. Any mismatch is a hard fail with no further detail.
func (s *Service) Authenticate(ctx context.Context, sessionID, token string) (Identity, error) {
	if sessionID == "" || token == "" {
		return Identity{}, ErrHardFail
	}

	if s.cache != nil {
		entry, err := s.cache.Lookup(ctx, sessionID)
		if err == nil && entry != nil && entry.TokenHash == auth.HashToken(token) {
			return s.rotate(ctx, sessionID, entry.UserID, entry.Name, entry.AccessLevel)
		}
		// Miss, error or token mismatch: the store decides.
	}

	user, err := s.store.GetUserByCredentials(ctx, sessionID, token)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrHardFail
	}
	if err != nil {
		return Identity{}, err
	}
	return s.rotate(ctx, sessionID, user.ID, user.Name, user.AccessLevel)
}

// rotate invalidates the presented token by persisting a fresh one, making
// tokens single-use per step and bounding replay.
func (s *Service) rotate(ctx context.Context, sessionID string, userID int64, name string, accessLevel int) (Identity, error) {
	fresh := auth.NewToken()
	if err := s.store.UpdateUserToken(ctx, userID, fresh); err != nil {
		return Identity{}, err
	}
	s.cacheCredentials(ctx, sessionID, userID, name, accessLevel, fresh)
	return Identity{
		UserID: userID,
		Name:   name,
		Role:   rbac.FromLevel(accessLevel),
		Token:  fresh,
	}, nil
}

// cacheCredentials is best-effort: a failed write leaves a stale entry
// whose token hash no longer matches, which the gate treats as a miss.
func (s *Service) cacheCredentials(ctx context.Context, sessionID string, userID int64, name string, accessLevel int, token string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Put(ctx, sessionID, session.Entry{
		UserID:      userID,
		Name:        name,
		AccessLevel: accessLevel,
		TokenHash:   auth.HashToken(token),
	})
}

func (s *Service) Projects(ctx context.Context, id Identity) (map[string]any, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return map[string]any{"status": "no_projects", "token": id.Token}, nil
	}

	items := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		name, err := s.store.GetUserName(ctx, project.UserID)
		if err != nil {
			return nil, err
		}
		items = append(items, map[string]any{
			"id":          project.ID,
			"title":       project.Title,
			"description": project.Description,
			"added":       project.Added,
			"name":        name,
		})
	}
	return okEnvelope(id, map[string]any{"data": items}), nil
}

func (s *Service) CreateProject(ctx context.Context, id Identity, input CreateProjectInput) (map[string]any, error) {
	if !rbac.Can(id.Role, rbac.ActionCreateProject) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	if len(input.Title) < 3 || len(input.Title) > 255 ||
		len(input.Description) < 3 || len(input.Description) > 511 ||
		len(input.Glossary) < 4 || len(input.Glossary) > 8191 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Field length out of range")
	}
	if _, err := segment.ParseGlossary(input.Glossary); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid glossary format")
	}
	if !titlePattern.MatchString(input.Title) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Title must be alpha numeric")
	}
	if !descriptionPattern.MatchString(input.Description) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Description can only include letters, digits, spaces and dots")
	}
	if len(input.Segments) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Project needs at least one segment")
	}
	for _, text := range input.Segments {
		if len(text) < 3 || len(text) > 50000 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Segment size out of range")
		}
	}

	projectID, err := s.store.CreateProject(ctx, store.Project{
		UserID:      id.UserID,
		Title:       slugifyTitle(input.Title),
		Description: input.Description,
		Glossary:    input.Glossary,
	})
	if err != nil {
		return nil, err
	}

	// Each target starts as blank parts whose separator count matches
	// the source's sentence boundaries; the part-count invariant holds
	// before any translator touches the row.
	for _, text := range input.Segments {
		blank := segment.BlankFor(text).Join()
		if _, err := s.store.CreateSegmentPair(ctx, projectID, text, blank); err != nil {
			return nil, err
		}
	}

	return okEnvelope(id, map[string]any{"project_id": projectID}), nil
}

func (s *Service) DeleteProject(ctx context.Context, id Identity, rawProjectID string) (map[string]any, error) {
	projectID, err := parseID(rawProjectID)
	if err != nil {
		return nil, err
	}
	if !rbac.Can(id.Role, rbac.ActionDeleteProject) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return nil, err
	}
	return okEnvelope(id, nil), nil
}

func (s *Service) Glossary(ctx context.Context, id Identity, rawProjectID string) (map[string]any, error) {
	projectID, err := parseID(rawProjectID)
	if err != nil {
		return nil, err
	}
	raw, err := s.store.GetProjectGlossary(ctx, projectID)
	if err != nil {
		return nil, err
	}
	terms, err := segment.ParseGlossary(raw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "INTEGRITY_ERROR", "Stored glossary is corrupted")
	}
	items := make([]map[string]any, 0, len(terms))
	for _, term := range terms {
		items = append(items, map[string]any{"term": term.Name, "definition": term.Definition})
	}
	return okEnvelope(id, map[string]any{"glossary": raw, "terms": items}), nil
}

func (s *Service) Segments(ctx context.Context, id Identity, rawProjectID string) (map[string]any, error) {
	projectID, err := parseID(rawProjectID)
	if err != nil {
		return nil, err
	}
	sources, err := s.store.ListSourceSegments(ctx, projectID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(sources))
	for _, source := range sources {
		target, err := s.store.GetTargetSegment(ctx, source.ID)
		if err != nil {
			return nil, err
		}

		assigned := target.UserID != 0
		var canEdit, canUnassign bool
		if assigned {
			canEdit = target.UserID == id.UserID || rbac.Can(id.Role, rbac.ActionEditAnySegment)
			canUnassign = target.UserID == id.UserID || rbac.Can(id.Role, rbac.ActionReleaseAnyClaim)
		} else {
			canEdit = rbac.Can(id.Role, rbac.ActionEditAnySegment)
		}

		items = append(items, map[string]any{
			"id":           source.ID,
			"text":         truncateRunes(source.Text, previewRunes),
			"complete":     target.Complete,
			"assigned":     assigned,
			"can_edit":     canEdit,
			"can_unassign": canUnassign,
		})
	}
	return okEnvelope(id, map[string]any{"segments": items}), nil
}

func (s *Service) SourceSegment(ctx context.Context, id Identity, rawSegmentID string) (map[string]any, error) {
	segmentID, err := parseID(rawSegmentID)
	if err != nil {
		return nil, err
	}
	source, err := s.store.GetSourceSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	return okEnvelope(id, map[string]any{"text": source.Text}), nil
}

func (s *Service) TargetSegment(ctx context.Context, id Identity, rawSegmentID string) (map[string]any, error) {
	segmentID, err := parseID(rawSegmentID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.GetTargetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	if target.UserID != id.UserID && !rbac.Can(id.Role, rbac.ActionEditAnySegment) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	return okEnvelope(id, map[string]any{"text": target.Text, "complete": target.Complete}), nil
}

// PatchTargetSegment applies exactly one of a text edit or a completion
// edit. The authorization decision uses the assignee read in this call,
// and a text edit must conserve the part count.
func (s *Service) PatchTargetSegment(ctx context.Context, id Identity, rawSegmentID string, input PatchSegmentInput) (map[string]any, error) {
	segmentID, err := parseID(rawSegmentID)
	if err != nil {
		return nil, err
	}
	if (input.Text == nil) == (input.Complete == nil) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid API request")
	}

	var complete bool
	if input.Complete != nil {
		value, err := parseID(*input.Complete)
		if err != nil {
			return nil, err
		}
		complete = value != 0
	}

	target, err := s.store.GetTargetSegment(ctx, segmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Could not find target segment")
	}
	if err != nil {
		return nil, err
	}
	if target.UserID != id.UserID && !rbac.Can(id.Role, rbac.ActionEditAnySegment) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}

	if input.Text != nil {
		if !segment.Split(target.Text).Conserves(segment.Split(*input.Text)) {
			return nil, domainError(http.StatusUnprocessableEntity, "INTEGRITY_ERROR", "Target segment data is corrupted")
		}
		if err := s.store.UpdateTargetText(ctx, segmentID, *input.Text); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.UpdateTargetComplete(ctx, segmentID, complete); err != nil {
			return nil, err
		}
	}
	return okEnvelope(id, nil), nil
}

// AssignSegment claims a free segment for the caller. The claim is a
// conditional write: when two callers race, exactly one wins and the other
// fails fast.
func (s *Service) AssignSegment(ctx context.Context, id Identity, rawSegmentID string) (map[string]any, error) {
	segmentID, err := parseID(rawSegmentID)
	if err != nil {
		return nil, err
	}
	if !rbac.Can(id.Role, rbac.ActionTranslate) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	if _, err := s.store.GetTargetSegment(ctx, segmentID); err != nil {
		return nil, err
	}
	claimed, err := s.store.ClaimSegment(ctx, segmentID, id.UserID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domainError(http.StatusConflict, "SEGMENT_CLAIMED", "Segment is already assigned")
	}
	return okEnvelope(id, map[string]any{"segment_id": segmentID}), nil
}

func (s *Service) UnassignSegment(ctx context.Context, id Identity, rawSegmentID string) (map[string]any, error) {
	segmentID, err := parseID(rawSegmentID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.GetTargetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	if target.UserID != id.UserID && !rbac.Can(id.Role, rbac.ActionReleaseAnyClaim) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	if err := s.store.ReleaseSegment(ctx, segmentID); err != nil {
		return nil, err
	}
	return okEnvelope(id, map[string]any{"segment_id": segmentID}), nil
}

func (s *Service) CreateRequest(ctx context.Context, id Identity, input CreateRequestInput) (map[string]any, error) {
	if !rbac.Can(id.Role, rbac.ActionRaiseRequest) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	if err := validateFreeText(input.Text, 2, 1023, "request text"); err != nil {
		return nil, err
	}
	if err := validateFreeText(input.Context, 3, 4095, "request context"); err != nil {
		return nil, err
	}
	projectID, err := parseID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	segmentID, err := parseID(input.SegmentID)
	if err != nil {
		return nil, err
	}

	requestID, err := s.store.CreateRequest(ctx, store.Request{
		UserID:    id.UserID,
		ProjectID: projectID,
		SegmentID: segmentID,
		Context:   input.Context,
		Text:      input.Text,
	})
	if err != nil {
		return nil, err
	}
	return okEnvelope(id, map[string]any{"request_id": requestID}), nil
}

func (s *Service) Requests(ctx context.Context, id Identity) (map[string]any, error) {
	requests, err := s.store.ListOpenRequests(ctx)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return map[string]any{"status": "no_requests", "token": id.Token}, nil
	}

	items := make([]map[string]any, 0, len(requests))
	for _, request := range requests {
		name, err := s.store.GetUserName(ctx, request.UserID)
		if err != nil {
			return nil, err
		}
		item := map[string]any{
			"name":       name,
			"context":    request.Context,
			"text":       request.Text,
			"project_id": request.ProjectID,
			"segment_id": request.SegmentID,
			"request_id": request.ID,
		}

		if request.UserID == id.UserID {
			item["can_reply"] = false
			item["can_close"] = true
			answers, err := s.store.ListAnswers(ctx, request.ID)
			if err != nil {
				return nil, err
			}
			if len(answers) > 0 {
				replies := make([]map[string]any, 0, len(answers))
				for _, answer := range answers {
					responder, err := s.store.GetUserName(ctx, answer.UserID)
					if err != nil {
						return nil, err
					}
					replies = append(replies, map[string]any{"text": answer.Text, "name": responder})
				}
				item["answers"] = replies
			}
		} else {
			item["can_reply"] = true
			item["can_close"] = rbac.Can(id.Role, rbac.ActionCloseAnyRequest)
		}
		items = append(items, item)
	}
	return okEnvelope(id, map[string]any{"requests": items}), nil
}

// CloseRequest is one-way; there is no reopen path.
func (s *Service) CloseRequest(ctx context.Context, id Identity, rawRequestID string) (map[string]any, error) {
	requestID, err := parseID(rawRequestID)
	if err != nil {
		return nil, err
	}
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.UserID != id.UserID && !rbac.Can(id.Role, rbac.ActionCloseAnyRequest) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "This request does not belong to you")
	}
	closed, err := s.store.CloseRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, domainError(http.StatusConflict, "REQUEST_CLOSED", "Request is already closed")
	}
	return okEnvelope(id, nil), nil
}

func (s *Service) CreateAnswer(ctx context.Context, id Identity, input CreateAnswerInput) (map[string]any, error) {
	if !rbac.Can(id.Role, rbac.ActionAnswerRequest) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	projectID, err := parseID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	segmentID, err := parseID(input.SegmentID)
	if err != nil {
		return nil, err
	}
	requestID, err := parseID(input.RequestID)
	if err != nil {
		return nil, err
	}
	if err := validateFreeText(input.Text, 2, 1023, "answer text"); err != nil {
		return nil, err
	}

	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.Open {
		return nil, domainError(http.StatusConflict, "REQUEST_CLOSED", "Request is already closed")
	}

	answerID, err := s.store.CreateAnswer(ctx, store.Answer{
		UserID:    id.UserID,
		ProjectID: projectID,
		SegmentID: segmentID,
		RequestID: requestID,
		Text:      input.Text,
	})
	if err != nil {
		return nil, err
	}
	return okEnvelope(id, map[string]any{"answer_id": answerID}), nil
}

// ProjectTranslation exports every target text of a project plus the
// assembled plain-text document. Admin only.
func (s *Service) ProjectTranslation(ctx context.Context, id Identity, rawProjectID string) (map[string]any, error) {
	projectID, err := parseID(rawProjectID)
	if err != nil {
		return nil, err
	}
	if !rbac.Can(id.Role, rbac.ActionExportTranslation) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Insufficient access rights")
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	targets, err := s.store.ListTargetTexts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	document := export.Assemble(projectID, project.Title, targets)
	return okEnvelope(id, map[string]any{
		"segments": targets,
		"document": document.Text(),
	}), nil
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
