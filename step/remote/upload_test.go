package remote

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmbuild/collection"
	"github.com/mensylisir/xmbuild/connector"
	"github.com/mensylisir/xmbuild/logger"
	"github.com/mensylisir/xmbuild/step"
)

// memHost is an in-memory remote filesystem.
type memHost struct {
	files map[string]string
	log   []string
}

func newMemHost() *memHost {
	return &memHost{files: map[string]string{}}
}

func (h *memHost) Exec(_ context.Context, cmd string) ([]byte, []byte, int, error) {
	h.log = append(h.log, cmd)
	fields := strings.Fields(cmd)
	if len(fields) == 4 && fields[0] == "mv" {
		from, to := strings.Trim(fields[2], "'"), strings.Trim(fields[3], "'")
		content, ok := h.files[from]
		if !ok {
			return nil, []byte("no such file"), 1, nil
		}
		delete(h.files, from)
		h.files[to] = content
		return nil, nil, 0, nil
	}
	return nil, []byte("unsupported"), 127, nil
}

func (h *memHost) Upload(_ context.Context, local, remote string, _ os.FileMode) error {
	content, err := os.ReadFile(local)
	if err != nil {
		return err
	}
	h.files[remote] = string(content)
	return nil
}

func (h *memHost) Exists(_ context.Context, remote string) (bool, error) {
	_, ok := h.files[remote]
	return ok, nil
}

func (h *memHost) MkdirAll(context.Context, string, os.FileMode) error { return nil }

func (h *memHost) Remove(_ context.Context, remote string) error {
	delete(h.files, remote)
	return nil
}

func (h *memHost) Close() error { return nil }

type staticPool struct {
	conn connector.Connection
	err  error
}

func (p staticPool) Get(connector.Config) (connector.Connection, error) { return p.conn, p.err }

func localFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

var node1 = connector.Config{Username: "root", Address: "10.0.0.5"}

func TestUpload(t *testing.T) {
	host := newMemHost()
	s := Upload(staticPool{conn: host}, node1, step.Literal(localFile(t, "v2")), step.Literal("/opt/app/payload"))
	assert.Equal(t, "upload "+step.Describe(s.Local)+" to 10.0.0.5:/opt/app/payload", s.Description())

	c := collection.New("deploy", collection.WithLogger(logger.Discard()))
	require.NoError(t, c.Add("upload", s))
	agg := c.Run()
	require.True(t, agg.Succeeded(), agg.String())
	assert.Equal(t, map[string]string{"/opt/app/payload": "v2"}, host.files)
}

func TestUploadReplacesExistingFile(t *testing.T) {
	host := newMemHost()
	host.files["/opt/app/payload"] = "v1"

	c := collection.New("deploy", collection.WithLogger(logger.Discard()))
	require.NoError(t, c.Add("upload", Upload(staticPool{conn: host}, node1, step.Literal(localFile(t, "v2")), step.Literal("/opt/app/payload"))))
	agg := c.Run()
	require.True(t, agg.Succeeded(), agg.String())
	assert.Equal(t, map[string]string{"/opt/app/payload": "v2"}, host.files)
}

func TestUploadRollbackRestoresPreviousFile(t *testing.T) {
	host := newMemHost()
	host.files["/opt/app/payload"] = "v1"

	c := collection.New("deploy", collection.WithLogger(logger.Discard()))
	require.NoError(t, c.Add("upload", Upload(staticPool{conn: host}, node1, step.Literal(localFile(t, "v2")), step.Literal("/opt/app/payload"))))
	require.NoError(t, c.Add("new", Upload(staticPool{conn: host}, node1, step.Literal(localFile(t, "cfg")), step.Literal("/etc/app.conf"))))
	require.NoError(t, c.AddFunc("healthcheck", "check service health", func(*logrus.Entry) error {
		return errors.New("unhealthy")
	}))

	agg := c.Run()
	require.True(t, agg.Failed())
	assert.False(t, agg.HasDiagnostics())
	assert.Equal(t, map[string]string{"/opt/app/payload": "v1"}, host.files)
}

func TestUploadConnectFailure(t *testing.T) {
	s := Upload(staticPool{err: errors.New("dial tcp: refused")}, node1, step.Literal("/x"), step.Literal("/y"))
	r := s.Execute(logger.Discard())
	require.True(t, r.Failed())
	assert.Contains(t, r.Message, "refused")
	assert.True(t, step.CapabilitiesOf(s).Rollback.Execute(logger.Discard()).Succeeded())
}
