package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/config"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	p := config.Default()
	assert.Equal(t, 4, p.SamplesPerSymbol)
	assert.True(t, p.StreamMode)
	assert.Equal(t, 4, p.SyncFreqBins)
	assert.Equal(t, 9.5, p.SyncThreshold)
	assert.Equal(t, 0, p.IdlePacketSize)
	require.NoError(t, p.Validate())
}

func TestLoadYAMLOverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("samples_per_symbol: 8\nstream_mode: false\n"), 0o644))

	p, err := config.LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 8, p.SamplesPerSymbol)
	assert.False(t, p.StreamMode)
	assert.Equal(t, 9.5, p.SyncThreshold) // untouched key keeps its default
}

func TestFlagSetOverridesBoundFields(t *testing.T) {
	p := config.Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	p.FlagSet(fs)
	require.NoError(t, fs.Parse([]string{"--sps=2", "--tun-name=pmodem1"}))
	assert.Equal(t, 2, p.SamplesPerSymbol)
	assert.Equal(t, "pmodem1", p.TunName)
}

func TestValidateRejectsImpossibleSettings(t *testing.T) {
	p := config.Default()
	p.SamplesPerSymbol = 0
	assert.Error(t, p.Validate())
}
