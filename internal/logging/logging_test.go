package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutFilePathSucceeds(t *testing.T) {
	log, err := New(DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNewWithFilePathSucceeds(t *testing.T) {
	opts := DefaultOptions()
	opts.FilePath = filepath.Join(t.TempDir(), "schemasync.log")
	log, err := New(opts)
	require.NoError(t, err)
	assert.NotNil(t, log)
	log.Info("hello")
}
