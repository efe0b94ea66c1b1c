package logger

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultFieldSeparator  = " | "
	defaultTimestampFormat = time.RFC3339
)

// LevelNameDisplayMode defines which log level names are printed.
type LevelNameDisplayMode int

const (
	ShowAll LevelNameDisplayMode = iota
	ShowAboveWarn
	ShowAboveError
	HideAll
)

func (m LevelNameDisplayMode) shows(level logrus.Level) bool {
	switch m {
	case ShowAll:
		return true
	case ShowAboveWarn:
		return level <= logrus.WarnLevel
	case ShowAboveError:
		return level <= logrus.ErrorLevel
	default:
		return false
	}
}

// Formatter renders entries as
//
//	<time> [LEVEL] [Collection:x | Entry:y | key:value] message (caller)
//
// Context fields listed in FieldsDisplayWithOrder come first, the rest
// alphabetically.
type Formatter struct {
	TimestampFormat  string
	DisableTimestamp bool
	NoColors         bool
	ForceColors      bool

	DisplayLevelName LevelNameDisplayMode
	ShowFullLevel    bool
	NoUppercaseLevel bool

	HideKeys               bool
	FieldsDisplayWithOrder []string
	FieldSeparator         string
	// MaxFieldValueLength truncates long values; 0 disables truncation.
	MaxFieldValueLength int
	// Prettyfier overrides value formatting, e.g. for results or paths.
	Prettyfier func(key string, value interface{}) string

	CallerFirst           bool
	DisableCaller         bool
	CustomCallerFormatter func(*runtime.Frame) string
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(layout))
		b.WriteByte(' ')
	}

	withCaller := !f.DisableCaller && entry.HasCaller()
	if f.CallerFirst && withCaller {
		f.writeCaller(b, entry)
		b.WriteByte(' ')
	}

	if f.DisplayLevelName.shows(entry.Level) {
		f.writeLevel(b, entry.Level)
		b.WriteByte(' ')
	}

	if len(entry.Data) > 0 {
		b.WriteByte('[')
		f.writeFields(b, entry)
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)

	if !f.CallerFirst && withCaller {
		b.WriteByte(' ')
		f.writeCaller(b, entry)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *Formatter) writeLevel(b *bytes.Buffer, level logrus.Level) {
	name := level.String()
	if !f.ShowFullLevel && len(name) > 4 {
		name = name[:4]
	}
	if !f.NoUppercaseLevel {
		name = strings.ToUpper(name)
	}
	if f.ForceColors || !f.NoColors {
		fmt.Fprintf(b, "\x1b[%dm[%s]\x1b[0m", colorFor(level), name)
		return
	}
	fmt.Fprintf(b, "[%s]", name)
}

// fieldOrder returns the keys of data, ordered fields first.
func (f *Formatter) fieldOrder(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	seen := make(map[string]bool, len(f.FieldsDisplayWithOrder))
	for _, k := range f.FieldsDisplayWithOrder {
		if _, ok := data[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(data)-len(keys))
	for k := range data {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (f *Formatter) writeFields(b *bytes.Buffer, entry *logrus.Entry) {
	sep := f.FieldSeparator
	if sep == "" {
		sep = defaultFieldSeparator
	}
	for i, key := range f.fieldOrder(entry.Data) {
		if i > 0 {
			b.WriteString(sep)
		}
		f.writeKeyValue(b, key, entry.Data[key])
	}
}

func (f *Formatter) writeKeyValue(b *bytes.Buffer, key string, value interface{}) {
	var s string
	if f.Prettyfier != nil {
		s = f.Prettyfier(key, value)
	} else {
		s = fmt.Sprintf("%v", value)
	}
	if f.MaxFieldValueLength > 0 && len(s) > f.MaxFieldValueLength {
		s = s[:f.MaxFieldValueLength] + "..."
	}
	if f.HideKeys {
		b.WriteString(s)
		return
	}
	b.WriteString(key)
	b.WriteByte(':')
	b.WriteString(s)
}

func (f *Formatter) writeCaller(b *bytes.Buffer, entry *logrus.Entry) {
	if f.CustomCallerFormatter != nil {
		b.WriteString(f.CustomCallerFormatter(entry.Caller))
		return
	}
	fn := filepath.Base(entry.Caller.Function)
	if i := strings.LastIndex(fn, "."); i >= 0 {
		fn = fn[i+1:]
	}
	fmt.Fprintf(b, "(%s:%d %s)", filepath.Base(entry.Caller.File), entry.Caller.Line, fn)
}

const (
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 37
)

func colorFor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel:
		return colorBlue
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorGray
	}
}
