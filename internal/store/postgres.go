package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, access_level, session, token
		FROM users
		WHERE email=$1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.AccessLevel, &user.Session, &user.Token)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUserByCredentials matches both the session and the current token.
// sql.ErrNoRows here is the authentication failure the gate turns into a
// hard fail.
func (s *PostgresStore) GetUserByCredentials(ctx context.Context, session, token string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, access_level, session, token
		FROM users
		WHERE session=$1 AND token=$2
	`, session, token).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.AccessLevel, &user.Session, &user.Token)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserCredentials(ctx context.Context, userID int64, session, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET session=$2, token=$3 WHERE id=$1`, userID, session, token)
	if err != nil {
		return fmt.Errorf("update user credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserToken(ctx context.Context, userID int64, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET token=$2 WHERE id=$1`, userID, token)
	if err != nil {
		return fmt.Errorf("update user token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserName(ctx context.Context, userID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id=$1`, userID).Scan(&name)
	if err != nil {
		return "", err
	}
	return name, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, glossary, added
		FROM projects
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var item Project
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.Glossary, &item.Added); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID int64) (Project, error) {
	var item Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, glossary, added
		FROM projects
		WHERE id=$1
	`, projectID).Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.Glossary, &item.Added)
	if err != nil {
		return Project{}, err
	}
	return item, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, project Project) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (user_id, title, description, glossary)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, project.UserID, project.Title, project.Description, project.Glossary).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

// DeleteProject cascades to segments, requests and answers. The statements
// run sequentially without a surrounding transaction, matching the store
// constraint the rest of the workflow lives under.
func (s *PostgresStore) DeleteProject(ctx context.Context, projectID int64) error {
	steps := []struct {
		what  string
		query string
	}{
		{what: "answers", query: `DELETE FROM answers WHERE project_id=$1`},
		{what: "requests", query: `DELETE FROM requests WHERE project_id=$1`},
		{what: "target segments", query: `DELETE FROM target_segments WHERE project_id=$1`},
		{what: "source segments", query: `DELETE FROM source_segments WHERE project_id=$1`},
		{what: "project", query: `DELETE FROM projects WHERE id=$1`},
	}
	for _, step := range steps {
		if _, err := s.db.ExecContext(ctx, step.query, projectID); err != nil {
			return fmt.Errorf("delete %s: %w", step.what, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetProjectGlossary(ctx context.Context, projectID int64) (string, error) {
	var glossary string
	err := s.db.QueryRowContext(ctx, `SELECT glossary FROM projects WHERE id=$1`, projectID).Scan(&glossary)
	if err != nil {
		return "", err
	}
	return glossary, nil
}

// CreateSegmentPair inserts a source segment and its blank target in one
// call. The target row reuses the source row's generated id.
func (s *PostgresStore) CreateSegmentPair(ctx context.Context, projectID int64, sourceText, targetText string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO source_segments (project_id, text)
		VALUES ($1, $2)
		RETURNING id
	`, projectID, sourceText).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert source segment: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO target_segments (id, project_id, text, complete, user_id)
		VALUES ($1, $2, $3, FALSE, 0)
	`, id, projectID, targetText); err != nil {
		return 0, fmt.Errorf("insert target segment: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListSourceSegments(ctx context.Context, projectID int64) ([]SourceSegment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, text
		FROM source_segments
		WHERE project_id=$1
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list source segments: %w", err)
	}
	defer rows.Close()

	items := make([]SourceSegment, 0)
	for rows.Next() {
		var item SourceSegment
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Text); err != nil {
			return nil, fmt.Errorf("scan source segment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source segments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetSourceSegment(ctx context.Context, segmentID int64) (SourceSegment, error) {
	var item SourceSegment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, text
		FROM source_segments
		WHERE id=$1
	`, segmentID).Scan(&item.ID, &item.ProjectID, &item.Text)
	if err != nil {
		return SourceSegment{}, err
	}
	return item, nil
}

func (s *PostgresStore) GetTargetSegment(ctx context.Context, segmentID int64) (TargetSegment, error) {
	var item TargetSegment
	var text sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, text, complete, user_id
		FROM target_segments
		WHERE id=$1
	`, segmentID).Scan(&item.ID, &item.ProjectID, &text, &item.Complete, &item.UserID)
	if err != nil {
		return TargetSegment{}, err
	}
	item.Text = text.String
	return item, nil
}

func (s *PostgresStore) UpdateTargetText(ctx context.Context, segmentID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE target_segments SET text=$2 WHERE id=$1`, segmentID, text)
	if err != nil {
		return fmt.Errorf("update target text: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTargetComplete(ctx context.Context, segmentID int64, complete bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE target_segments SET complete=$2 WHERE id=$1`, segmentID, complete)
	if err != nil {
		return fmt.Errorf("update target complete: %w", err)
	}
	return nil
}

// ClaimSegment writes the assignee only if the segment is still free. The
// conditional predicate closes the claim race between two concurrent
// callers: the loser sees zero rows affected.
func (s *PostgresStore) ClaimSegment(ctx context.Context, segmentID, userID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE target_segments
		SET user_id=$2
		WHERE id=$1 AND user_id=0
	`, segmentID, userID)
	if err != nil {
		return false, fmt.Errorf("claim segment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim segment rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ReleaseSegment(ctx context.Context, segmentID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE target_segments SET user_id=0 WHERE id=$1`, segmentID)
	if err != nil {
		return fmt.Errorf("release segment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTargetTexts(ctx context.Context, projectID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(text, '')
		FROM target_segments
		WHERE project_id=$1
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list target texts: %w", err)
	}
	defer rows.Close()

	items := make([]string, 0)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan target text: %w", err)
		}
		items = append(items, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate target texts: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateRequest(ctx context.Context, request Request) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO requests (user_id, project_id, segment_id, context, text, open)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`, request.UserID, request.ProjectID, request.SegmentID, request.Context, request.Text).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListOpenRequests(ctx context.Context) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, segment_id, context, text, open, added
		FROM requests
		WHERE open
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list open requests: %w", err)
	}
	defer rows.Close()

	items := make([]Request, 0)
	for rows.Next() {
		var item Request
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProjectID, &item.SegmentID, &item.Context, &item.Text, &item.Open, &item.Added); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, requestID int64) (Request, error) {
	var item Request
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, project_id, segment_id, context, text, open, added
		FROM requests
		WHERE id=$1
	`, requestID).Scan(&item.ID, &item.UserID, &item.ProjectID, &item.SegmentID, &item.Context, &item.Text, &item.Open, &item.Added)
	if err != nil {
		return Request{}, err
	}
	return item, nil
}

// CloseRequest is one-way; closing an already-closed request reports no
// change.
func (s *PostgresStore) CloseRequest(ctx context.Context, requestID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE requests SET open=FALSE WHERE id=$1 AND open`, requestID)
	if err != nil {
		return false, fmt.Errorf("close request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close request rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) CreateAnswer(ctx context.Context, answer Answer) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO answers (user_id, project_id, segment_id, request_id, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, answer.UserID, answer.ProjectID, answer.SegmentID, answer.RequestID, answer.Text).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create answer: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListAnswers(ctx context.Context, requestID int64) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, segment_id, request_id, text, added
		FROM answers
		WHERE request_id=$1
		ORDER BY id ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	items := make([]Answer, 0)
	for rows.Next() {
		var item Answer
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProjectID, &item.SegmentID, &item.RequestID, &item.Text, &item.Added); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
