// Package anonssh implements the SSH listener variants of the daemon
// bootstrap in internal/maincmd: "anon-ssh" (any client accepted, no
// authentication beyond a host key) and "authorized-ssh" (client must
// present one of a configured set of public keys). Both accept an "exec"
// request carrying the rsync command line and hand it to the same Main
// entry point a remote-shell invocation would use.
package anonssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/google/shlex"
	"golang.org/x/crypto/ssh"

	"github.com/oferchen/oc-rsync-sub001/internal/rsyncdconfig"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
)

// Listener wraps the SSH server configuration (host key, auth policy) built
// for one [[listener]] block.
type Listener struct {
	config *ssh.ServerConfig
}

// ListenerFromConfig builds a Listener for lc. An authorized_ssh listener
// restricts clients to the public keys in AuthorizedSSH.AuthorizedKeys; an
// anon_ssh listener accepts any client once the transport-level handshake
// succeeds (the rsync module ACLs in rsyncd.Module still apply afterwards).
func ListenerFromConfig(osenv *rsyncos.Env, lc rsyncdconfig.Listener) (*Listener, error) {
	cfg := &ssh.ServerConfig{}

	if lc.AuthorizedSSH.Address != "" {
		if lc.AuthorizedSSH.AuthorizedKeys == "" {
			return nil, fmt.Errorf("anonssh: authorized_ssh listener requires authorized_keys")
		}
		keys, err := loadAuthorizedKeys(lc.AuthorizedSSH.AuthorizedKeys)
		if err != nil {
			return nil, fmt.Errorf("anonssh: loading authorized_keys: %v", err)
		}
		cfg.PublicKeyCallback = func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if keys[string(key.Marshal())] {
				return nil, nil
			}
			return nil, fmt.Errorf("unrecognized public key from %s@%s", conn.User(), conn.RemoteAddr())
		}
	} else {
		cfg.NoClientAuth = true
	}

	signer, err := hostSigner(lc.AuthorizedSSH.HostKey)
	if err != nil {
		return nil, err
	}
	cfg.AddHostKey(signer)

	return &Listener{config: cfg}, nil
}

// hostSigner loads a PEM host key from path, or generates an ephemeral
// ed25519 key for the lifetime of the process when path is empty.
func hostSigner(path string) (ssh.Signer, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ssh.ParsePrivateKey(b)
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return ssh.NewSignerFromKey(priv)
}

func loadAuthorizedKeys(path string) (map[string]bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for len(b) > 0 {
		pk, _, _, rest, err := ssh.ParseAuthorizedKey(b)
		if err != nil {
			break
		}
		out[string(pk.Marshal())] = true
		b = rest
	}
	return out, nil
}

// Handler runs one "exec" request's command line against stdin/stdout/stderr
// substituted for the SSH channel; it is how anonssh hands a connection back
// to maincmd.Main.
type Handler func(args []string, stdin io.Reader, stdout, stderr io.Writer) error

// Serve accepts connections on ln until ctx is done or Accept fails,
// handling each with an independent SSH server handshake.
func Serve(ctx context.Context, osenv *rsyncos.Env, ln net.Listener, sl *Listener, cfg *rsyncdconfig.Config, handler Handler) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			if err := serveConn(osenv, conn, sl, handler); err != nil {
				osenv.Logf("anonssh: connection from %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

func serveConn(osenv *rsyncos.Env, conn net.Conn, sl *Listener, handler Handler) error {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, sl.config)
	if err != nil {
		return err
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			return err
		}
		go handleSession(ch, requests, handler)
	}
	return nil
}

type execMsg struct {
	Command string
}

type exitStatusMsg struct {
	Status uint32
}

func handleSession(ch ssh.Channel, requests <-chan *ssh.Request, handler Handler) {
	defer ch.Close()
	for req := range requests {
		if req.Type != "exec" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}

		var msg execMsg
		ssh.Unmarshal(req.Payload, &msg)
		req.Reply(true, nil)

		status := uint32(0)
		args, err := shlex.Split(msg.Command)
		if err != nil {
			fmt.Fprintf(ch.Stderr(), "invalid command line: %v\n", err)
			status = 1
		} else if err := handler(args, ch, ch, ch.Stderr()); err != nil {
			fmt.Fprintf(ch.Stderr(), "%v\n", err)
			status = 1
		}
		ch.SendRequest("exit-status", false, ssh.Marshal(&exitStatusMsg{Status: status}))
		return
	}
}
