package ending

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStatusString(t *testing.T) {
	assert.Equal(t, "SUCCESS", ResultSuccess.String())
	assert.Equal(t, "FAILURE", ResultFailure.String())
	assert.Equal(t, "UNKNOWN_STATUS_7", ResultStatus(7).String())
}

func TestFailure(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		message     string
		wantMessage string
	}{
		{"error only", errors.New("disk full"), "", "disk full"},
		{"message only", nil, "bad input", "bad input"},
		{"both", errors.New("io"), "write failed", "write failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Failure(tt.err, tt.message)
			assert.True(t, r.Failed())
			assert.Equal(t, tt.wantMessage, r.Message)
			require.Error(t, r.Cause())
		})
	}
}

func TestFromError(t *testing.T) {
	ok := FromError(nil, "done")
	assert.True(t, ok.Succeeded())
	assert.Equal(t, "done", ok.Message)
	assert.NoError(t, ok.Cause())

	bad := FromError(errors.New("boom"), "done")
	assert.True(t, bad.Failed())
	assert.Equal(t, "boom", bad.Message)
}

func TestNilResult(t *testing.T) {
	var r *Result
	assert.False(t, r.Succeeded())
	assert.True(t, r.Failed())
	assert.Error(t, r.Cause())
	assert.Equal(t, "<nil>", r.String())
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "SUCCESS", Success("", nil).String())
	assert.Equal(t, "FAILURE: nope", Failuref("nope").String())
}
