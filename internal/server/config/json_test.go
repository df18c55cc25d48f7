package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr":                   ":9000",
		"secret_key":                      "json-secret",
		"access_token_validity_duration":  "5m",
		"refresh_token_validity_duration": "48h",
		"define_rps":                      2.5,
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{DatabaseDSN: "keep-dsn"}
		parseJson(cfg)

		assert.Equal(t, ":9000", cfg.EndpointAddr)
		assert.Equal(t, "json-secret", cfg.SecretKey)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 2.5, cfg.DefineRPS)
		assert.Equal(t, "keep-dsn", cfg.DatabaseDSN, "omitted field keeps earlier value")
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddr: ":1234"}
		parseJson(cfg)

		assert.Equal(t, ":1234", cfg.EndpointAddr)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
