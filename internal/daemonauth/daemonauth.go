// Package daemonauth implements the rsync daemon's module password
// authentication of spec.md §4.8 "Authentication": a random challenge, an
// MD5(challenge||secret) response, and a secrets file keyed by username.
package daemonauth

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// ChallengeLen is the size of the random challenge rsyncd sends the client.
const ChallengeLen = 16

// NewChallenge returns ChallengeLen random bytes.
func NewChallenge() ([]byte, error) {
	b := make([]byte, ChallengeLen)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Response computes the base64 MD5(challenge||secret) digest both sides
// compare to authenticate a module password.
func Response(challenge []byte, secret string) string {
	h := md5.New()
	h.Write(challenge)
	h.Write([]byte(secret))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// CheckSecretsFileMode rejects a secrets file that's accessible to group or
// other, matching rsyncd.conf(5)'s "secrets file" requirement.
func CheckSecretsFileMode(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Mode().Perm()&0o077 != 0 {
		return fmt.Errorf("daemonauth: secrets file %s must not be accessible to group or other (mode %04o)", path, fi.Mode().Perm())
	}
	return nil
}

// LookupSecret reads path (one "user:password" pair per line, '#' comments
// and blank lines ignored) and returns user's password.
func LookupSecret(path, user string) (string, error) {
	if err := CheckSecretsFileMode(path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, pass, ok := strings.Cut(line, ":")
		if !ok || name != user {
			continue
		}
		return pass, nil
	}
	return "", fmt.Errorf("daemonauth: no secret for user %q in %s", user, path)
}
