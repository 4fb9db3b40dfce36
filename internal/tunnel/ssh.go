package tunnel

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"lanta-sber-sender/internal/config"
)

// Tunnel SSH connection to the jump host. It satisfies pq.Dialer, so the
// Postgres driver opens its sockets as direct-tcpip channels of this connection.
type Tunnel struct {
	client *ssh.Client
	logger *zap.Logger
}

// Open connects and authenticates to the jump host
func Open(cfg *config.SSHConfig, logger *zap.Logger) (*Tunnel, error) {
	hostKeys, err := hostKeyCallback(cfg.KnownHosts)
	if err != nil {
		return nil, err
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKeys,
	}

	client, err := ssh.Dial("tcp", cfg.Addr(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ssh host %s: %w", cfg.Addr(), err)
	}

	logger.Info("SSH tunnel connected",
		zap.String("ssh_host", cfg.Addr()),
		zap.String("remote", fmt.Sprintf("%s:%d", cfg.RemoteHost, cfg.RemotePort)),
	)
	return &Tunnel{client: client, logger: logger}, nil
}

// Dial opens a channel to address on the jump host's side
func (t *Tunnel) Dial(network, address string) (net.Conn, error) {
	conn, err := t.client.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s through ssh: %w", address, err)
	}
	return conn, nil
}

// DialTimeout is Dial bounded by timeout
func (t *Tunnel) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := t.client.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s through ssh: %w", address, err)
	}
	return conn, nil
}

// Close tears down the SSH connection and every channel opened through it
func (t *Tunnel) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	t.logger.Info("SSH tunnel closed")
	return t.client.Close()
}

func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %s: %w", knownHostsFile, err)
	}
	return cb, nil
}
