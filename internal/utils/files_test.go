package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSafeWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := SafeWriteFile(path, []byte("{}")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "{}" {
		t.Fatalf("unexpected content %q (%v)", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "b.csv")
	b := filepath.Join(dir, "a.csv")
	touch(t, a)
	touch(t, b)

	files, err := ExpandInputs([]string{filepath.Join(dir, "*.csv"), a})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(files) != 2 || files[0] != b || files[1] != a {
		t.Fatalf("expected sorted unique files, got %v", files)
	}

	if _, err := ExpandInputs([]string{filepath.Join(dir, "*.tsv")}); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	first := UniquePath(dir, "runs", ".summary.md")
	if filepath.Base(first) != "runs.summary.md" {
		t.Fatalf("unexpected first path %s", first)
	}
	touch(t, first)
	second := UniquePath(dir, "runs", ".summary.md")
	if filepath.Base(second) != "runs__2.summary.md" {
		t.Fatalf("unexpected second path %s", second)
	}
	touch(t, second)
	if got := filepath.Base(UniquePath(dir, "runs", ".summary.md")); got != "runs__3.summary.md" {
		t.Fatalf("unexpected third path %s", got)
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("/data/run 1.csv"); got != "run 1" {
		t.Fatalf("got %q", got)
	}
}
