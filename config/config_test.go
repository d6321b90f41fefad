package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Millstreamu/StockTrak/ledger"
)

func TestLoadWritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocktrak.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "AUD", cfg.BaseCurrency)
	require.Equal(t, ledger.FIFO, cfg.MatchMethod())
	require.Equal(t, ledger.FeesBothSides, cfg.FeeAllocationStrategy())
	require.Equal(t, 365, cfg.DiscountDays)

	// The default file was created and loads back identically.
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadReadsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocktrak.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
lot_matching: HIFO
fee_allocation: SPLIT
discount_days: 180
rounding_places: 4
target_weights:
  CSL: 0.3
rule_thresholds:
  cgt_window_days: 30
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ledger.HIFO, cfg.MatchMethod())
	require.Equal(t, ledger.FeesSplit, cfg.FeeAllocationStrategy())
	require.Equal(t, 180, cfg.DiscountDays)
	require.Equal(t, int32(4), cfg.RoundingPlaces)
	require.Equal(t, 0.3, cfg.TargetWeights["CSL"])
	require.Equal(t, 30, cfg.Thresholds().CGTWindowDays)

	// Unset fields keep their defaults.
	require.Equal(t, "AUD", cfg.BaseCurrency)
	require.Equal(t, 0.25, cfg.Thresholds().ConcentrationLimit)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad matching method", "lot_matching: LIFO\n"},
		{"bad fee allocation", "fee_allocation: NEITHER\n"},
		{"bad discount days", "discount_days: 0\n"},
		{"negative rounding", "rounding_places: -1\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stocktrak.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestEnvOverridesDatabasePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocktrak.yaml")
	t.Setenv("STOCKTRAK_DB", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/other.db", cfg.DatabasePath)
}

func TestConfigDurations(t *testing.T) {
	cfg := Default()
	require.Equal(t, "15m0s", cfg.CacheTTL().String())
	require.Equal(t, "1h0m0s", cfg.StaleAfter().String())
}
