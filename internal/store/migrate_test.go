package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationFilesOrderAndFiltering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0002_requests.up.sql",
		"0001_init.up.sql",
		"0001_init.down.sql",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := migrationFiles(dir)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "0001_init.up.sql" || filepath.Base(files[1]) != "0002_requests.up.sql" {
		t.Fatalf("files out of order: %v", files)
	}
}

func TestMigrationFilesMissingDir(t *testing.T) {
	if _, err := migrationFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestMigrationVersion(t *testing.T) {
	cases := []struct {
		file string
		want string
	}{
		{file: "db/migrations/0001_init.up.sql", want: "0001_init"},
		{file: "0002_requests.up.sql", want: "0002_requests"},
	}
	for _, tc := range cases {
		if got := migrationVersion(tc.file); got != tc.want {
			t.Fatalf("migrationVersion(%q) = %q, want %q", tc.file, got, tc.want)
		}
	}
}
