package maincmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanUnexpectedlyWriteToWritableDir(t *testing.T) {
	dir := t.TempDir()
	if err := canUnexpectedlyWriteTo(dir); err == nil {
		t.Fatalf("canUnexpectedlyWriteTo(%q) = nil, want error (dir is writable)", dir)
	}
}

func TestCanUnexpectedlyWriteToMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	if err := canUnexpectedlyWriteTo(dir); err != nil {
		t.Errorf("canUnexpectedlyWriteTo(%q) = %v, want nil", dir, err)
	}
}

func TestCanUnexpectedlyWriteToStaleProbe(t *testing.T) {
	dir := t.TempDir()
	probe := filepath.Join(dir, ".oc-rsync-writecheck")
	if err := os.WriteFile(probe, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := canUnexpectedlyWriteTo(dir); err == nil {
		t.Fatalf("canUnexpectedlyWriteTo(%q) = nil, want error (stale probe present)", dir)
	}
}
