package jsonutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarshalIndentWithNewline(t *testing.T) {
	t.Parallel()

	data, err := MarshalIndentWithNewline(map[string]int{"a": 1}, "", "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "{\n  \"a\": 1\n}\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestWriteFileAtomic_CreatesParentsAndLeavesNoTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "file.json")

	if err := WriteFileAtomic(path, []byte(`{"ok":true}`), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("content = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file.json")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSONAtomic(path, []string{"new"}, 0o600); err != nil {
		t.Fatalf("WriteJSONAtomic() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[\n  \"new\"\n]\n" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteFileAtomic_RenameFailureRemovesTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A directory at the target path makes the rename fail.
	target := filepath.Join(dir, "target")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(target, []byte("x"), 0o600); err == nil {
		t.Fatal("expected error when target is a non-empty directory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
