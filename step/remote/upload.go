package remote

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/connector"
	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/step"
)

// Connections hands out connections to hosts. *connector.Pool satisfies it.
type Connections interface {
	Get(cfg connector.Config) (connector.Connection, error)
}

// UploadStep copies a local file to a host over SFTP. A file already present
// at the remote path is moved aside until the collection finishes.
type UploadStep struct {
	step.BaseStep
	pool   Connections
	host   connector.Config
	Local  step.Value
	Remote step.Value
	Mode   fs.FileMode

	conn    connector.Connection
	written string
	backup  string
}

// Upload copies local to remotePath on host.
func Upload(pool Connections, host connector.Config, local, remotePath step.Value) *UploadStep {
	return &UploadStep{
		BaseStep: step.NewBaseStep(fmt.Sprintf("upload %s to %s:%s", step.Describe(local), host.Address, step.Describe(remotePath))),
		pool:     pool,
		host:     host,
		Local:    local,
		Remote:   remotePath,
	}
}

func (s *UploadStep) Execute(log *logrus.Entry) *ending.Result {
	s.conn, s.written, s.backup = nil, "", ""
	values, err := step.Resolve(s.Local, s.Remote)
	if err != nil {
		return ending.Failure(err, "")
	}
	local, remote := values[0], values[1]
	log = log.WithField(common.HostName, s.host.Address)

	conn, err := s.pool.Get(s.host)
	if err != nil {
		return ending.Failure(err, "")
	}
	s.conn = conn

	ctx := context.Background()
	exists, err := conn.Exists(ctx, remote)
	if err != nil {
		return ending.Failure(err, "")
	}
	if exists {
		backup := remote + "." + common.TempPrefix + uuid.NewString()
		if err := s.move(ctx, remote, backup); err != nil {
			return ending.Failure(err, "")
		}
		log.Debugf("moved existing %s to %s", remote, backup)
		s.backup = backup
	}

	s.written = remote
	if err := conn.Upload(ctx, local, remote, s.Mode); err != nil {
		return ending.Failure(err, "")
	}
	return ending.Success(fmt.Sprintf("uploaded %s to %s:%s", local, s.host.Address, remote), remote)
}

func (s *UploadStep) move(ctx context.Context, from, to string) error {
	cmd := fmt.Sprintf("mv -f %s %s", connector.ShellQuote(from), connector.ShellQuote(to))
	_, stderr, code, err := s.conn.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.Errorf("failed to move %s to %s: %s", from, to, stderr)
	}
	return nil
}

// Rollback removes the uploaded file and restores the one it replaced.
func (s *UploadStep) Rollback() step.Step {
	return step.Func("remove upload made by: "+s.Description(), func(*logrus.Entry) error {
		if s.written == "" || s.conn == nil {
			return nil
		}
		ctx := context.Background()
		if err := s.conn.Remove(ctx, s.written); err != nil {
			return err
		}
		if s.backup == "" {
			return nil
		}
		backup := s.backup
		s.backup = ""
		return s.move(ctx, backup, s.written)
	})
}

// Completion deletes the replaced remote file, if one is still set aside.
func (s *UploadStep) Completion() step.Step {
	return step.Func("drop remote file replaced by: "+s.Description(), func(*logrus.Entry) error {
		if s.backup == "" || s.conn == nil {
			return nil
		}
		return s.conn.Remove(context.Background(), s.backup)
	})
}

var (
	_ step.Rollbacker = (*UploadStep)(nil)
	_ step.Completer  = (*UploadStep)(nil)
)
