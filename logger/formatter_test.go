package logger

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(level logrus.Level, msg string, fields logrus.Fields) *logrus.Entry {
	e := logrus.NewEntry(logrus.New())
	e.Time = time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)
	e.Level = level
	e.Message = msg
	e.Data = fields
	return e
}

func TestFormatterOrderedFields(t *testing.T) {
	f := &Formatter{
		TimestampFormat:        "15:04:05",
		NoColors:               true,
		DisplayLevelName:       ShowAll,
		FieldsDisplayWithOrder: DefaultFieldsOrder,
	}
	out, err := f.Format(newEntry(logrus.InfoLevel, "started", logrus.Fields{
		"zeta":       1,
		"Entry":      "compile",
		"alpha":      "a",
		"Collection": "build",
	}))
	require.NoError(t, err)
	assert.Equal(t, "10:20:30 [INFO] [Collection:build | Entry:compile | alpha:a | zeta:1] started\n", string(out))
}

func TestFormatterLevelDisplay(t *testing.T) {
	tests := []struct {
		name  string
		mode  LevelNameDisplayMode
		level logrus.Level
		want  string
	}{
		{"show all info", ShowAll, logrus.InfoLevel, "[INFO] msg\n"},
		{"above warn hides info", ShowAboveWarn, logrus.InfoLevel, "msg\n"},
		{"above warn shows warn", ShowAboveWarn, logrus.WarnLevel, "[WARN] msg\n"},
		{"above error hides warn", ShowAboveError, logrus.WarnLevel, "msg\n"},
		{"hide all", HideAll, logrus.ErrorLevel, "msg\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Formatter{DisableTimestamp: true, NoColors: true, DisplayLevelName: tt.mode}
			out, err := f.Format(newEntry(tt.level, "msg", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestFormatterTruncatesAndHidesKeys(t *testing.T) {
	f := &Formatter{
		DisableTimestamp:    true,
		NoColors:            true,
		DisplayLevelName:    HideAll,
		HideKeys:            true,
		MaxFieldValueLength: 4,
	}
	out, err := f.Format(newEntry(logrus.InfoLevel, "m", logrus.Fields{"path": "/very/long"}))
	require.NoError(t, err)
	assert.Equal(t, "[/ver...] m\n", string(out))
}

func TestFormatterColors(t *testing.T) {
	f := &Formatter{DisableTimestamp: true, DisplayLevelName: ShowAll}
	out, err := f.Format(newEntry(logrus.ErrorLevel, "bad", nil))
	require.NoError(t, err)
	assert.Equal(t, "\x1b[31m[ERRO]\x1b[0m bad\n", string(out))
}
