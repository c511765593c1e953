package dirs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCreatesDirectory(t *testing.T) {
	root := t.TempDir()

	for _, kind := range []Kind{Root, Encoded, Decoded, Cut, Archive} {
		path, err := Resolve(root, kind)
		require.NoError(t, err)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestResolveArchiveIsUnderDecoded(t *testing.T) {
	root := t.TempDir()

	archive, err := Resolve(root, Archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Decoded", "Archive"), archive)
}

func TestResolveIsIdempotent(t *testing.T) {
	root := t.TempDir()

	first, err := Resolve(root, Encoded)
	require.NoError(t, err)
	second, err := Resolve(root, Encoded)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveIndependentForEachWorkingDir(t *testing.T) {
	a, err := Resolve(t.TempDir(), Decoded)
	require.NoError(t, err)
	b, err := Resolve(t.TempDir(), Decoded)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Encoded", Encoded.String())
	assert.Equal(t, "Archive", Archive.String())
}
