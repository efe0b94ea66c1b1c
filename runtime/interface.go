package runtime

import (
	"github.com/mensylisir/xmbuild/connector"
	"github.com/mensylisir/xmbuild/runner"
)

// Runtime is the context plan entries are built against.
type Runtime interface {
	// ObjectName is the name of the plan being run.
	ObjectName() string
	WorkDir() string
	TempBase() string
	Verbose() bool

	// HostNames lists the configured hosts in declaration order.
	HostNames() []string
	Host(name string) (connector.Config, bool)

	// LocalRunner runs commands on this machine from WorkDir.
	LocalRunner() runner.Runner
	// HostRunner runs commands on a configured host. The connection is
	// opened on first use, not when the runner is returned.
	HostRunner(name string) (runner.Runner, error)
	Connections() *connector.Pool

	// Close releases every pooled connection.
	Close()
}
