package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRawStreamConfigToDomain(t *testing.T) {
	req := require.New(t)

	raw := RawStreamConfig{
		RoomIdleGrace: strPtr("2m"),
		SweepInterval: strPtr("15s"),
		DataDir:       strPtr("/var/lib/relay"),
	}

	cfg, err := raw.ToDomain()
	req.NoError(err)
	req.Equal("2m0s", cfg.RoomIdleGrace.String())
	req.Equal("15s", cfg.SweepInterval.String())
	req.Equal("/var/lib/relay", cfg.DataDir)

	_, err = RawStreamConfig{RoomIdleGrace: strPtr("not-a-duration")}.ToDomain()
	req.Error(err)
}

func TestRawStreamConfigToDomainHasNoSideEffects(t *testing.T) {
	req := require.New(t)

	dataDir := filepath.Join(t.TempDir(), "data")
	_, err := RawStreamConfig{DataDir: strPtr(dataDir)}.ToDomain()
	req.NoError(err)

	// conversion only records the path; the server creates it at startup
	_, err = os.Stat(dataDir)
	req.True(os.IsNotExist(err))
}
