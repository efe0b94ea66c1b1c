package collection

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/metrics"
)

// DefaultTempBase is where temporary directories and files are allocated
// unless WithTempBase says otherwise.
func DefaultTempBase() string {
	if xdg.CacheHome == "" {
		return common.GetTmpDir()
	}
	return filepath.Join(xdg.CacheHome, common.AppName, "tmp")
}

type options struct {
	log      *logrus.Entry
	recorder metrics.Recorder
	tempBase string
	observer func(collection string, p Phase)
}

func defaultOptions() options {
	return options{recorder: metrics.Nop{}, tempBase: DefaultTempBase()}
}

// Option configures a Collection.
type Option func(*options)

// WithLogger sets the base log entry. Without it the global logger is used.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTempBase sets the directory temporary allocations are created in.
func WithTempBase(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.tempBase = dir
		}
	}
}

// WithPhaseObserver registers a callback invoked on every phase transition.
func WithPhaseObserver(fn func(collection string, p Phase)) Option {
	return func(o *options) {
		o.observer = fn
	}
}
