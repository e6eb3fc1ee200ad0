package anonssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/oferchen/oc-rsync-sub001/internal/rsyncdconfig"
)

func TestHostSignerGenerated(t *testing.T) {
	signer, err := hostSigner("")
	if err != nil {
		t.Fatal(err)
	}
	if signer.PublicKey() == nil {
		t.Fatal("hostSigner returned a signer with a nil public key")
	}
}

func TestHostSignerFromFile(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	path := filepath.Join(t.TempDir(), "host_key")
	if err := os.WriteFile(path, pemBytes, 0600); err != nil {
		t.Fatal(err)
	}

	signer, err := hostSigner(path)
	if err != nil {
		t.Fatal(err)
	}
	wantPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	if string(signer.PublicKey().Marshal()) != string(wantPub.Marshal()) {
		t.Errorf("hostSigner(%q) public key does not match the key written to disk", path)
	}
}

func TestLoadAuthorizedKeys(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	line := ssh.MarshalAuthorizedKey(sshPub)

	path := filepath.Join(t.TempDir(), "authorized_keys")
	if err := os.WriteFile(path, line, 0600); err != nil {
		t.Fatal(err)
	}

	keys, err := loadAuthorizedKeys(path)
	if err != nil {
		t.Fatal(err)
	}
	if !keys[string(sshPub.Marshal())] {
		t.Errorf("loadAuthorizedKeys(%q) did not contain the key written to disk", path)
	}
}

func TestListenerFromConfigAnonAcceptsAnyClient(t *testing.T) {
	lc := rsyncdconfig.Listener{AnonSSH: "localhost:0"}
	l, err := ListenerFromConfig(nil, lc)
	if err != nil {
		t.Fatal(err)
	}
	if !l.config.NoClientAuth {
		t.Error("anon SSH listener should accept clients without authentication")
	}
}

func TestListenerFromConfigAuthorizedRequiresKeys(t *testing.T) {
	lc := rsyncdconfig.Listener{}
	lc.AuthorizedSSH.Address = "localhost:0"
	if _, err := ListenerFromConfig(nil, lc); err == nil {
		t.Error("expected error when authorized_ssh listener has no authorized_keys configured")
	}
}
