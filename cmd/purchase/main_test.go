package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	boltStore "inapppay/internal/adapter/storage/bolt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "purchases.db")
	configPath = filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`backend:
  base_url: http://127.0.0.1:1
  project_name: demo
  user_id: user-1
store:
  driver: bolt
  bolt_path: %s
log:
  level: error
`, dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0600))
	return configPath, dbPath
}

func TestRun_InvalidRequestClosesClient(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad amount", []string{"-item", "gems_100", "-amount", "abc"}},
		{"bad meta", []string{"-item", "gems_100", "-amount", "4.99", "-method", "paypal", "-meta", "nokey"}},
		{"rejected by validation", []string{"-item", "", "-amount", "4.99"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath, dbPath := writeConfig(t)
			var stdout, stderr bytes.Buffer

			code := run(append([]string{"-config", configPath}, tt.args...), &stdout, &stderr)
			assert.Equal(t, 2, code)
			assert.NotEmpty(t, stderr.String())
			assert.Empty(t, stdout.String())

			// The bolt file lock is only released by client.Close.
			db, err := boltStore.Open(dbPath)
			require.NoError(t, err)
			assert.NoError(t, db.Close())
		})
	}
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-no-such-flag"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "no-such-flag")
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest("gems_100", "4.99", "USD", "", "4111111111111111", "12/30", "123", "Ada", "level=7, source=shop")
	require.NoError(t, err)
	assert.Equal(t, "gems_100", req.ItemID)
	assert.Equal(t, "4.99", req.Amount.String())
	require.NotNil(t, req.Card)
	assert.Equal(t, "12/30", req.Card.Expiry)
	assert.Equal(t, map[string]string{"level": "7", "source": "shop"}, req.Metadata)
}
