package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2024, time.January, 31, 9, 15, 42, 0, time.UTC)
	assert.Equal(t, "BasePolicyRules.20240131.0915.log", FileName(ts))
}

func TestNewWritesBothSinks(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, time.March, 2, 17, 5, 0, 0, time.UTC)
	var console bytes.Buffer

	logger, closer, err := newLogger(dir, "info", &console, now)
	require.NoError(t, err)

	logger.Infof("Policy Name: %s", "WEB-Policy")
	logger.Debugf("hidden at info level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "BasePolicyRules.20240302.1705.log"))
	require.NoError(t, err)

	assert.Contains(t, string(data), "Policy Name: WEB-Policy")
	assert.NotContains(t, string(data), "hidden")
	assert.Equal(t, string(data), console.String())
}

func TestNewInvalid(t *testing.T) {
	_, _, err := New(t.TempDir(), "verbose")
	assert.Error(t, err)

	_, _, err = New(filepath.Join(t.TempDir(), "missing"), "info")
	assert.Error(t, err)
}
