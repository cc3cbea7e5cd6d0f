package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirs(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a", "b", "client.db")

	got, err := EnsureParentDir(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	fi, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "only the directory is created")
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x", "client.db")

	first, err := EnsureParentDir(path)
	require.NoError(t, err)
	second, err := EnsureParentDir(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureParentDir_RelativePath(t *testing.T) {
	tmp := t.TempDir()
	t.Chdir(tmp)

	got, err := EnsureParentDir(filepath.Join("data", "client.db"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.DirExists(t, filepath.Join(tmp, "data"))
}

func TestEnsureParentDir_ParentIsFile(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureParentDir(filepath.Join(blocker, "sub", "client.db"))
	assert.ErrorContains(t, err, "mkdir")
}

func TestUserDataPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("HOME", "/tmp/home")

	got := UserDataPath("metaltracker", "client.db")
	if runtime.GOOS == "linux" {
		assert.Equal(t, "/tmp/cfg/metaltracker/client.db", got)
	}
	assert.Equal(t, "client.db", filepath.Base(got))
}
