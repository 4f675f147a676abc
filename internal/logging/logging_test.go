package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/freshstart/outreach/internal/logging"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "default", level: "", format: "console", want: zapcore.InfoLevel},
		{name: "debug json", level: "debug", format: "json", want: zapcore.DebugLevel},
		{name: "warning alias", level: "WARNING", format: "console", want: zapcore.WarnLevel},
		{name: "error", level: "error", format: "json", want: zapcore.ErrorLevel},
		{name: "bad level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logging.New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}
