package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.ExternalAPI.TextGen.Model)
	assert.Equal(t, 0.1, cfg.ExternalAPI.TextGen.Temperature)
	assert.Equal(t, "pt", cfg.ExternalAPI.Transcription.Language)
	assert.Equal(t, "info", cfg.Logging.Level)

	pipeline := manager.GetPipelineConfig()
	assert.Equal(t, 1, pipeline.MinGroupsForCategory)
	assert.Equal(t, 0.5, pipeline.MediumCompleteness)
	assert.Equal(t, 0.8, pipeline.HighCompleteness)
	assert.Equal(t, 3, pipeline.MaxCorrections)
	assert.Equal(t, 0.30, pipeline.MaxFabricationRate)
	assert.False(t, pipeline.LLMAssistEnabled)
	assert.Equal(t, 60*time.Second, pipeline.ExternalCallTimeout)
}

func TestValidateDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)
	assert.NoError(t, manager.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func()
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func() { manager.GetConfig().Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "unknown driver",
			mutate:  func() { manager.GetConfig().Database.Driver = "oracle" },
			wantErr: "invalid database driver",
		},
		{
			name:    "inverted completeness thresholds",
			mutate:  func() { manager.GetConfig().Pipeline.MediumCompleteness = 0.9 },
			wantErr: "completeness thresholds",
		},
		{
			name:    "fabrication rate out of range",
			mutate:  func() { manager.GetConfig().Pipeline.MaxFabricationRate = 1.5 },
			wantErr: "max_fabrication_rate",
		},
		{
			name:    "bad log level",
			mutate:  func() { manager.GetConfig().Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, manager.Reload())
			tt.mutate()
			err := manager.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEDREPORT_SERVER_PORT", "9090")
	t.Setenv("MEDREPORT_PIPELINE_MAX_CORRECTIONS", "5")

	manager, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 9090, manager.GetServerConfig().Port)
	assert.Equal(t, 5, manager.GetPipelineConfig().MaxCorrections)
}
