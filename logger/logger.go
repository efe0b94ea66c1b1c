package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
)

// Log is the global logger instance of XMLog. It starts as a console
// logger and is replaced by InitGlobalLogger.
var Log *XMLog

func init() {
	Log = NewConsoleLog(false, logrus.InfoLevel)
}

// XMLog wraps logrus.Logger with collection-scoped helpers.
type XMLog struct {
	*logrus.Logger
}

// DefaultFieldsOrder is the display order of context fields.
var DefaultFieldsOrder = []string{
	common.CollectionName, common.EntryName, common.PhaseName, common.StepName, common.HostName,
}

// DefaultLogDir is where file logs go when no directory is configured.
func DefaultLogDir() string {
	return filepath.Join(xdg.StateHome, common.AppName, "logs")
}

func levelFor(verbose bool, defaultLevel logrus.Level) (logrus.Level, LevelNameDisplayMode) {
	if verbose {
		return logrus.DebugLevel, ShowAll
	}
	return defaultLevel, ShowAboveWarn
}

// NewConsoleLog creates a colored console logger on stdout.
func NewConsoleLog(verbose bool, defaultLevel logrus.Level) *XMLog {
	level, display := levelFor(verbose, defaultLevel)
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&Formatter{
		TimestampFormat:        "15:04:05",
		DisplayLevelName:       display,
		DisableCaller:          true,
		FieldsDisplayWithOrder: DefaultFieldsOrder,
	})
	logger.SetOutput(os.Stdout)
	return &XMLog{Logger: logger}
}

// NewFileLog creates a logger writing daily-rotated files under outputPath.
func NewFileLog(outputPath string, verbose bool, defaultLevel logrus.Level) (*XMLog, error) {
	level, display := levelFor(verbose, defaultLevel)
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetReportCaller(true)

	if err := os.MkdirAll(outputPath, common.FileMode0755); err != nil {
		return nil, fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
	}
	logFilePath := filepath.Join(outputPath, common.AppName+".log")

	writer, err := rotatelogs.New(
		logFilePath+".%Y%m%d",
		rotatelogs.WithLinkName(logFilePath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
	}

	fileFormatter := &Formatter{
		TimestampFormat:        "2006-01-02 15:04:05.000 MST",
		NoColors:               true,
		DisplayLevelName:       display,
		FieldsDisplayWithOrder: DefaultFieldsOrder,
		FieldSeparator:         " | ",
		CustomCallerFormatter: func(frame *runtime.Frame) string {
			return fmt.Sprintf(" [%s:%d %s]", filepath.Base(frame.File), frame.Line, filepath.Base(frame.Function))
		},
	}
	logger.SetFormatter(fileFormatter)

	logWriters := lfshook.WriterMap{}
	for _, l := range logrus.AllLevels {
		if logger.IsLevelEnabled(l) {
			logWriters[l] = writer
		}
	}
	logger.Hooks.Add(lfshook.NewHook(logWriters, fileFormatter))
	// The hook owns file output.
	logger.SetOutput(io.Discard)
	return &XMLog{Logger: logger}, nil
}

// InitGlobalLogger replaces the global Log. An empty outputPath keeps
// logging on the console.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	if outputPath == "" {
		Log = NewConsoleLog(verbose, defaultLevel)
		return nil
	}
	l, err := NewFileLog(outputPath, verbose, defaultLevel)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// ForCollection returns an entry scoped to a collection.
func (xl *XMLog) ForCollection(name string) *logrus.Entry {
	return xl.WithField(common.CollectionName, name)
}

// ForEntry returns an entry scoped to a collection entry.
func (xl *XMLog) ForEntry(collection, entry string) *logrus.Entry {
	return xl.WithFields(logrus.Fields{
		common.CollectionName: collection,
		common.EntryName:      entry,
	})
}

// ForHost returns an entry scoped to a remote host.
func (xl *XMLog) ForHost(host string) *logrus.Entry {
	return xl.WithField(common.HostName, host)
}

// Discard returns an entry that drops everything, for callers that need a
// logger but have none.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
