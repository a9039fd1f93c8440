package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/embhttp/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{
			name: "json stdout",
			cfg:  config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name: "console stderr",
			cfg:  config.LoggingConfig{Level: "debug", Format: "console", Output: "stderr"},
		},
		{
			name: "empty level defaults to info",
			cfg:  config.LoggingConfig{},
		},
		{
			name:    "invalid level",
			cfg:     config.LoggingConfig{Level: "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)

			logger.Debug("debug", String("k", "v"))
			logger.Info("info", Int("n", 1))
			child := logger.With(String("component", "test"))
			child.Warn("warn")
		})
	}
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	logger := NewNopLogger()
	logger.Info("discarded", Bool("ok", true))
	logger.Error("discarded too")
	assert.NoError(t, logger.Sync())
	assert.NotNil(t, logger.With(String("a", "b")))
}
