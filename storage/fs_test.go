package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSWriteReadRoundTrip(t *testing.T) {
	fs := NewFS(t.TempDir())

	require.False(t, fs.Exists("Norder3/Dir0/Npix42.fits"))
	require.NoError(t, fs.WriteBinary("Norder3/Dir0/Npix42.fits", []byte{1, 2, 3}))
	require.True(t, fs.Exists("Norder3/Dir0/Npix42.fits"))

	data, err := fs.ReadBinary("Norder3/Dir0/Npix42.fits")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, fs.WriteText("properties", "hips_order = 3\n"))
	text, err := fs.ReadText("properties")
	require.NoError(t, err)
	require.Equal(t, "hips_order = 3\n", text)
	require.NoError(t, fs.Finalize())
}

func TestFSReadMissingPathIsResourceError(t *testing.T) {
	fs := NewFS(t.TempDir())

	_, err := fs.ReadBinary("nope")
	require.Error(t, err)
}
