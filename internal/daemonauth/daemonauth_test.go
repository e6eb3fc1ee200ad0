package daemonauth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResponseDeterministic(t *testing.T) {
	challenge := []byte("0123456789abcdef")
	r1 := Response(challenge, "s3cret")
	r2 := Response(challenge, "s3cret")
	if r1 != r2 {
		t.Fatalf("Response is not deterministic: %q != %q", r1, r2)
	}
	if Response(challenge, "other") == r1 {
		t.Fatalf("Response did not change with a different secret")
	}
}

func TestLookupSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets")
	contents := "# comment\n\nalice:wonderland\nbob:builder\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	pass, err := LookupSecret(path, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if pass != "builder" {
		t.Errorf("LookupSecret(bob) = %q, want %q", pass, "builder")
	}
	if _, err := LookupSecret(path, "carol"); err == nil {
		t.Error("LookupSecret(carol) = nil error, want error for unknown user")
	}
}

func TestCheckSecretsFileModeRejectsWorldReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets")
	if err := os.WriteFile(path, []byte("alice:wonderland\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CheckSecretsFileMode(path); err == nil {
		t.Error("CheckSecretsFileMode accepted a world-readable secrets file")
	}
}

func TestCheckSecretsFileModeAcceptsOwnerOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets")
	if err := os.WriteFile(path, []byte("alice:wonderland\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := CheckSecretsFileMode(path); err != nil {
		t.Errorf("CheckSecretsFileMode rejected an owner-only secrets file: %v", err)
	}
}
