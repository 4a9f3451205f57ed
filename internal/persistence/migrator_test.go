package persistence

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVersionOf(t *testing.T) {
	cases := map[string]string{
		"000001_alert_history.up.sql": "000001",
		"000002_interventions.up.sql": "000002",
		"noversion.sql":               "noversion.sql",
	}
	for file, want := range cases {
		if got := versionOf(file); got != want {
			t.Errorf("versionOf(%q) = %q, want %q", file, got, want)
		}
	}
}

func TestMigrationFilesSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_interventions.up.sql",
		"000001_alert_history.up.sql",
		"000001_alert_history.down.sql",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("-- x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m := NewMigrator(nil, dir)
	files, err := m.migrationFiles(".up.sql")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"000001_alert_history.up.sql", "000002_interventions.up.sql"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
}
