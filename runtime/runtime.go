package runtime

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/config"
	"github.com/mensylisir/xmbuild/connector"
	"github.com/mensylisir/xmbuild/runner"
)

// baseRuntime implements the Runtime interface.
type baseRuntime struct {
	objectName string
	workDir    string
	tempBase   string
	verbose    bool
	hostNames  []string
	hosts      map[string]connector.Config
	local      runner.Runner
	pool       *connector.Pool
}

// Config for creating a new baseRuntime.
type Config struct {
	ObjectName string
	WorkDir    string
	TempBase   string
	Verbose    bool
	Hosts      []config.HostSpec

	// Dialer opens host connections; nil means SSH.
	Dialer connector.Dialer
}

// NewRuntime creates a new instance of Runtime.
func NewRuntime(cfg Config) (Runtime, error) {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.TempBase == "" {
		cfg.TempBase = config.DefaultTempBase()
	}

	r := &baseRuntime{
		objectName: cfg.ObjectName,
		workDir:    cfg.WorkDir,
		tempBase:   cfg.TempBase,
		verbose:    cfg.Verbose,
		hosts:      make(map[string]connector.Config, len(cfg.Hosts)),
		local:      runner.NewLocalRunner(runner.InDir(cfg.WorkDir)),
		pool:       connector.NewPool(cfg.Dialer),
	}
	for _, h := range cfg.Hosts {
		if _, dup := r.hosts[h.Name]; dup {
			return nil, errors.Errorf("runtime: duplicate host %q", h.Name)
		}
		r.hostNames = append(r.hostNames, h.Name)
		r.hosts[h.Name] = HostConfig(h)
	}
	return r, nil
}

// FromPlan builds a runtime from a loaded plan.
func FromPlan(p *config.Plan, dialer connector.Dialer) (Runtime, error) {
	s := p.Spec.Settings
	return NewRuntime(Config{
		ObjectName: p.Metadata.Name,
		WorkDir:    s.WorkDir,
		TempBase:   s.TempBase,
		Verbose:    s.Log.Verbose,
		Hosts:      p.Spec.Hosts,
		Dialer:     dialer,
	})
}

// HostConfig converts a plan host into connection parameters.
func HostConfig(h config.HostSpec) connector.Config {
	return connector.Config{
		Username:    h.User,
		Password:    h.Password,
		Address:     h.Address,
		Port:        h.Port,
		KeyFile:     h.PrivateKeyPath,
		AgentSocket: h.AgentSocket,
		Timeout:     h.TimeoutDuration(),
	}
}

func (r *baseRuntime) ObjectName() string { return r.objectName }

func (r *baseRuntime) WorkDir() string { return r.workDir }

func (r *baseRuntime) TempBase() string { return r.tempBase }

func (r *baseRuntime) Verbose() bool { return r.verbose }

func (r *baseRuntime) HostNames() []string {
	listCopy := make([]string, len(r.hostNames))
	copy(listCopy, r.hostNames)
	return listCopy
}

func (r *baseRuntime) Host(name string) (connector.Config, bool) {
	cfg, ok := r.hosts[name]
	return cfg, ok
}

func (r *baseRuntime) LocalRunner() runner.Runner { return r.local }

func (r *baseRuntime) HostRunner(name string) (runner.Runner, error) {
	cfg, ok := r.hosts[name]
	if !ok {
		return nil, errors.Errorf("runtime: unknown host %q", name)
	}
	return &hostRunner{name: name, cfg: cfg, pool: r.pool}, nil
}

func (r *baseRuntime) Connections() *connector.Pool { return r.pool }

func (r *baseRuntime) Close() { r.pool.Close() }

// hostRunner dials through the pool on every call, so the first command
// opens the connection and later ones share it.
type hostRunner struct {
	name string
	cfg  connector.Config
	pool *connector.Pool
}

func (h *hostRunner) conn() (runner.Runner, error) {
	c, err := h.pool.Get(h.cfg)
	if err != nil {
		return nil, err
	}
	return runner.NewConnRunner(h.name, c), nil
}

func (h *hostRunner) Run(ctx context.Context, command string) (string, string, int, error) {
	r, err := h.conn()
	if err != nil {
		return "", "", -1, err
	}
	return r.Run(ctx, command)
}

func (h *hostRunner) SudoRun(ctx context.Context, command string) (string, string, int, error) {
	r, err := h.conn()
	if err != nil {
		return "", "", -1, err
	}
	return r.SudoRun(ctx, command)
}

func (h *hostRunner) Target() string { return h.name }
