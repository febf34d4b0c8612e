package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFile_RoundTripAndClear(t *testing.T) {
	f := TokenFile{Path: filepath.Join(t.TempDir(), "nested", "agri_token.json")}

	_, err := f.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, f.Save(farmer()))
	info, err := os.Stat(f.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, farmer(), got)

	require.NoError(t, f.Clear())
	require.NoError(t, f.Clear(), "clearing twice is fine")
	_, err = f.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTokenFile_RejectsGarbage(t *testing.T) {
	f := TokenFile{Path: filepath.Join(t.TempDir(), "agri_token.json")}
	require.NoError(t, os.WriteFile(f.Path, []byte("{oops"), 0o600))
	_, err := f.Load()
	assert.Error(t, err)

	assert.ErrorIs(t, f.Save(&Session{}), ErrNoSession)
}
