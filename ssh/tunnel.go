// Package ssh forwards a local port to the database host through a
// bastion, for connection profiles that enable SSH.
//
// Design decisions:
//   - Uses golang.org/x/crypto/ssh for the client.
//   - The local side binds 127.0.0.1:0 so the kernel picks a free port.
//   - Host keys are checked against ~/.ssh/known_hosts when that file
//     exists; otherwise the tunnel logs a warning and accepts any key.
//   - Only key-based authentication is supported (with optional passphrase).
package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/config"
)

// Addr is the local endpoint pgx should connect to.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Tunnel forwards connections on a local listener to remoteAddr via the
// bastion at sshAddr.
type Tunnel struct {
	clientConfig *ssh.ClientConfig
	sshAddr      string
	remoteAddr   string

	client   *ssh.Client
	listener net.Listener
	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// NewTunnel prepares a tunnel to dbHost:dbPort. Nothing is dialled yet.
func NewTunnel(cfg config.SSHConfig, dbHost string, dbPort int) (*Tunnel, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKeys, err := hostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &Tunnel{
		clientConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKeys,
		},
		sshAddr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		remoteAddr: net.JoinHostPort(dbHost, strconv.Itoa(dbPort)),
		done:       make(chan struct{}),
	}, nil
}

// Start dials the bastion and begins accepting local connections.
func (t *Tunnel) Start(ctx context.Context) (Addr, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.sshAddr)
	if err != nil {
		return Addr{}, fmt.Errorf("ssh dial %s: %w", t.sshAddr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, t.sshAddr, t.clientConfig)
	if err != nil {
		conn.Close()
		return Addr{}, fmt.Errorf("ssh handshake %s: %w", t.sshAddr, err)
	}
	t.client = ssh.NewClient(c, chans, reqs)

	t.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.client.Close()
		return Addr{}, fmt.Errorf("local listen: %w", err)
	}
	local := Addr{Host: "127.0.0.1", Port: t.listener.Addr().(*net.TCPAddr).Port}

	t.wg.Add(1)
	go t.acceptLoop()

	applog.Event("SSH", "tunnel %s -> %s via %s", local, t.remoteAddr, t.sshAddr)
	return local, nil
}

// Stop closes the listener, waits for open forwards and closes the client.
// It is safe to call more than once.
func (t *Tunnel) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		if t.listener != nil {
			t.listener.Close()
		}
		if t.client != nil {
			t.client.Close()
		}
		t.wg.Wait()
	})
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		t.wg.Add(1)
		go t.forward(local)
	}
}

func (t *Tunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.client.Dial("tcp", t.remoteAddr)
	if err != nil {
		applog.Error("ssh forward to %s: %v", t.remoteAddr, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(local, remote)
		done <- struct{}{}
	}()
	select {
	case <-done:
	case <-t.done:
	}
}

func authMethods(cfg config.SSHConfig) ([]ssh.AuthMethod, error) {
	if cfg.KeyPath == "" {
		return nil, errors.New("ssh tunnel needs key_path in the connection profile")
	}
	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", cfg.KeyPath, err)
	}

	var signer ssh.Signer
	if cfg.KeyPassphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(cfg.KeyPassphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func hostKeyCallback() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".ssh", "known_hosts")
		if _, statErr := os.Stat(path); statErr == nil {
			cb, err := knownhosts.New(path)
			if err != nil {
				return nil, fmt.Errorf("known_hosts: %w", err)
			}
			return cb, nil
		}
	}
	applog.Warn("no ~/.ssh/known_hosts; ssh host key is not verified")
	return ssh.InsecureIgnoreHostKey(), nil
}
