package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/logger"
)

// Config describes how to reach a host over SSH.
type Config struct {
	Username   string
	Password   string
	Address    string
	Port       int
	PrivateKey string
	KeyFile    string

	// AgentSocket is a socket path, or "env:NAME" to take it from $NAME.
	AgentSocket string
	Timeout     time.Duration
}

// Key identifies the endpoint cfg points at.
func (cfg Config) Key() string {
	return cfg.Username + "@" + cfg.endpoint()
}

func (cfg Config) endpoint() string {
	port := cfg.Port
	if port <= 0 {
		port = common.DefaultSSHPort
	}
	return net.JoinHostPort(cfg.Address, strconv.Itoa(port))
}

// normalize checks that cfg can be dialled, loads KeyFile when no key is
// given inline and fills in the default port and timeout.
func (cfg Config) normalize() (Config, error) {
	switch {
	case cfg.Username == "":
		return cfg, errors.New("no username specified for SSH connection")
	case cfg.Address == "":
		return cfg, errors.New("no address specified for SSH connection")
	case cfg.Password == "" && cfg.PrivateKey == "" && cfg.KeyFile == "" && cfg.AgentSocket == "":
		return cfg, errors.New("need at least one of password, private key, key file or agent socket")
	}
	if cfg.PrivateKey == "" && cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return cfg, errors.Wrapf(err, "failed to read keyfile %s", cfg.KeyFile)
		}
		cfg.PrivateKey = string(key)
	}
	if cfg.Port <= 0 {
		cfg.Port = common.DefaultSSHPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = common.DefaultSSHTimeout
	}
	return cfg, nil
}

const agentEnvPrefix = "env:"

// agentSocketPath resolves an "env:NAME" socket reference. An unset
// variable leaves the reference as is, so dialling it fails with a clear
// path in the error.
func agentSocketPath(socket string) string {
	name, ok := strings.CutPrefix(socket, agentEnvPrefix)
	if !ok {
		return socket
	}
	if p := os.Getenv(name); p != "" {
		return p
	}
	logger.Log.Warnf("Environment variable %s for the SSH agent socket is empty", name)
	return socket
}

// auth collects the authentication methods cfg allows. The returned agent
// connection, if any, must stay open for as long as the SSH client lives.
func auth(cfg Config) ([]ssh.AuthMethod, net.Conn, error) {
	var methods []ssh.AuthMethod
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if cfg.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to parse SSH private key")
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.AgentSocket == "" {
		return methods, nil, nil
	}

	sock := agentSocketPath(cfg.AgentSocket)
	agentConn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to reach SSH agent at %s", sock)
	}
	signers, err := agent.NewClient(agentConn).Signers()
	if err != nil {
		_ = agentConn.Close()
		return nil, nil, errors.Wrap(err, "failed to list SSH agent keys")
	}
	return append(methods, ssh.PublicKeys(signers...)), agentConn, nil
}

var _ Connection = (*connection)(nil)

// connection holds one SSH client and the SFTP session opened over it.
type connection struct {
	cfg Config

	mu    sync.Mutex
	ssh   *ssh.Client
	files *sftp.Client
	agent net.Conn
}

// Dial opens an SSH connection with an SFTP subsystem. It satisfies Dialer.
func Dial(cfg Config) (Connection, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate ssh connection parameters")
	}
	methods, agentConn, err := auth(cfg)
	if err != nil {
		return nil, err
	}

	c := &connection{cfg: cfg, agent: agentConn}
	c.ssh, err = ssh.Dial("tcp", cfg.endpoint(), &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            methods,
		Timeout:         cfg.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "failed to dial %s", cfg.Key())
	}
	if c.files, err = sftp.NewClient(c.ssh); err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "failed to start sftp on %s", cfg.Key())
	}
	logger.Log.ForHost(cfg.Address).Debugf("Connected to %s", cfg.Key())
	return c, nil
}

// Close releases the SFTP session, the SSH client and the agent socket,
// in that order, and reports the first failure.
func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var closers []io.Closer
	if c.files != nil {
		closers = append(closers, c.files)
	}
	if c.ssh != nil {
		closers = append(closers, c.ssh)
	}
	if c.agent != nil {
		closers = append(closers, c.agent)
	}
	c.files, c.ssh, c.agent = nil, nil, nil

	var first error
	for _, cl := range closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return errors.Wrap(first, "failed to close ssh connection")
}

func (c *connection) live() (*ssh.Client, *sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ssh == nil || c.files == nil {
		return nil, nil, errors.Errorf("no open ssh connection to %s", c.cfg.Key())
	}
	return c.ssh, c.files, nil
}

func (c *connection) Exec(ctx context.Context, cmd string) ([]byte, []byte, int, error) {
	client, _, err := c.live()
	if err != nil {
		return nil, nil, -1, err
	}
	sess, err := client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.Wrap(err, "failed to open ssh session")
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout, sess.Stderr = &stdout, &stderr
	if err := sess.Start(strings.TrimSpace(cmd)); err != nil {
		return nil, nil, -1, errors.Wrapf(err, "failed to start %q", cmd)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGINT)
		_ = sess.Close()
		<-done
		return stdout.Bytes(), stderr.Bytes(), -1, errors.Wrapf(ctx.Err(), "%q cancelled", cmd)
	}

	code, err := exitCode(waitErr)
	if err != nil {
		err = errors.Wrapf(err, "%q did not finish", cmd)
	}
	return stdout.Bytes(), stderr.Bytes(), code, err
}

// exitCode turns the error of a finished session into its exit status. Only
// errors without a status are returned.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exit *ssh.ExitError
	if errors.As(err, &exit) {
		return exit.ExitStatus(), nil
	}
	return -1, err
}

func (c *connection) Upload(ctx context.Context, localPath, remotePath string, mode os.FileMode) error {
	_, files, err := c.live()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, "failed to open upload source")
	}
	defer src.Close()
	if mode == 0 {
		info, err := src.Stat()
		if err != nil {
			return errors.Wrap(err, "failed to stat upload source")
		}
		mode = info.Mode().Perm()
	}

	if err := files.MkdirAll(path.Dir(remotePath)); err != nil {
		return errors.Wrapf(err, "failed to create parent of %s on %s", remotePath, c.cfg.Address)
	}
	if err := writeRemote(files, remotePath, src); err != nil {
		return errors.Wrapf(err, "failed to upload %s to %s:%s", localPath, c.cfg.Address, remotePath)
	}
	if err := files.Chmod(remotePath, mode); err != nil {
		return errors.Wrapf(err, "failed to set mode of %s on %s", remotePath, c.cfg.Address)
	}
	return nil
}

func writeRemote(files *sftp.Client, remotePath string, r io.Reader) error {
	dst, err := files.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := dst.ReadFrom(r); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func (c *connection) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, files, err := c.live()
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	switch _, err := files.Lstat(remotePath); {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, errors.Wrapf(err, "failed to look up %s on %s", remotePath, c.cfg.Address)
	}
}

func (c *connection) MkdirAll(ctx context.Context, remotePath string, mode os.FileMode) error {
	if mode == 0 {
		mode = common.FileMode0755
	}
	quoted := ShellQuote(remotePath)
	perm := fmt.Sprintf("%#o", mode.Perm())
	return c.shell(ctx, fmt.Sprintf(common.MkdirCmdTpl, quoted)+" && "+fmt.Sprintf(common.ChmodCmdTpl, perm, quoted))
}

func (c *connection) Remove(ctx context.Context, remotePath string) error {
	if p := path.Clean(remotePath); remotePath == "" || p == "/" {
		return errors.Errorf("refusing to remove %q", remotePath)
	}
	return c.shell(ctx, fmt.Sprintf(common.RemoveCmdTpl, ShellQuote(remotePath)))
}

// shell runs cmd and turns a non-zero exit status into an error carrying
// stderr.
func (c *connection) shell(ctx context.Context, cmd string) error {
	_, stderr, code, err := c.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.Errorf("%q exited with code %d: %s", cmd, code, bytes.TrimSpace(stderr))
	}
	return nil
}

// SudoPrefix wraps cmd so that it runs through sudo with the caller's environment.
func SudoPrefix(cmd string) string {
	return "sudo -E /bin/bash -c " + ShellQuote(cmd)
}

// ShellQuote quotes arg for a POSIX shell.
func ShellQuote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
