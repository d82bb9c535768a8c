package store

import "time"

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	AccessLevel  int
	// Session and Token are the process-wide bearer credentials. The
	// token is rotated on every authenticated call; the session only at
	// login. Both are mutated exclusively by the session gate.
	Session   string
	Token     string
	CreatedAt time.Time
}

type Project struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Glossary    string
	Added       time.Time
}

// SourceSegment holds immutable source text. Created once at project
// creation, never mutated afterwards.
type SourceSegment struct {
	ID        int64
	ProjectID int64
	Text      string
}

// TargetSegment shares its primary key with the source segment it
// translates. UserID 0 means unassigned.
type TargetSegment struct {
	ID        int64
	ProjectID int64
	Text      string
	Complete  bool
	UserID    int64
}

type Request struct {
	ID        int64
	UserID    int64
	ProjectID int64
	SegmentID int64
	Context   string
	Text      string
	Open      bool
	Added     time.Time
}

type Answer struct {
	ID        int64
	UserID    int64
	ProjectID int64
	SegmentID int64
	RequestID int64
	Text      string
	Added     time.Time
}
