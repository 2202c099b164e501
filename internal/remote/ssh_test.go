package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// startHangingSSHServer accepts exec requests and never reports an exit
// status, like a remote command that does not finish.
func startHangingSSHServer(t *testing.T) *ssh.Client {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}
	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveHanging(conn, cfg)
		}
	}()

	client, err := ssh.Dial("tcp", ln.Addr().String(), &ssh.ClientConfig{
		User:            "deploy",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial test server: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func serveHanging(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for nc := range chans {
		ch, requests, err := nc.Accept()
		if err != nil {
			continue
		}
		go func() {
			for req := range requests {
				if req.WantReply {
					req.Reply(req.Type == "exec", nil)
				}
			}
			ch.Close()
		}()
	}
}

func TestSSHSessionRun_DeadlineEndsHangingCommand(t *testing.T) {
	client := startHangingSSHServer(t)
	session := &sshSession{client: client}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	began := time.Now()
	_, err := session.Run(ctx, ownerCommand(4242))
	elapsed := time.Since(began)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("returned after %v, deadline was 50ms", elapsed)
	}
	if got := runError("build", ownerCommand(4242), err); !core.HasCode(got, core.ErrCodeCommandFailed) {
		t.Errorf("runError = %v, want command_failed", got)
	}
}
