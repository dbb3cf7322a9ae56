package accounts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data", "accounts.yaml"))
}

func TestMissingFileIsEmpty(t *testing.T) {
	accts, err := newStore(t).Load()
	require.NoError(t, err)
	assert.Nil(t, accts.Master)
	assert.Empty(t, accts.Slaves)
}

func TestSaveAndLoad(t *testing.T) {
	s := newStore(t)
	master := models.Credentials{Login: 7001, Password: "m", Server: "Demo", TOTPSecret: "JBSWY3DPEHPK3PXP"}
	require.NoError(t, s.Save(models.AccountMaster, master))
	require.NoError(t, s.Save(models.AccountSlave, models.Credentials{Login: 7002, Password: "a", Server: "Demo"}))
	require.NoError(t, s.Save(models.AccountSlave, models.Credentials{Login: 7003, Password: "b", Server: "Live"}))

	accts, err := New(s.Path()).Load()
	require.NoError(t, err)
	require.NotNil(t, accts.Master)
	assert.Equal(t, master, *accts.Master)
	require.Len(t, accts.Slaves, 2)
	assert.Equal(t, int64(7003), accts.Slaves[1].Login)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	replacement := models.Credentials{Login: 7009, Password: "n", Server: "Demo"}
	require.NoError(t, s.Save(models.AccountMaster, replacement))
	accts, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(7009), accts.Master.Login)
}

func TestSaveRejectsDuplicates(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(models.AccountMaster, models.Credentials{Login: 7001}))
	require.NoError(t, s.Save(models.AccountSlave, models.Credentials{Login: 7002}))

	tests := []struct {
		name  string
		kind  models.AccountKind
		login int64
		want  error
	}{
		{"slave twice", models.AccountSlave, 7002, exception.ErrAccountExists},
		{"master as slave", models.AccountSlave, 7001, exception.ErrAccountExists},
		{"slave as master", models.AccountMaster, 7002, exception.ErrAccountExists},
		{"zero login", models.AccountSlave, 0, exception.ErrInvalidArgument},
		{"unknown kind", models.AccountKind("observer"), 7005, exception.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Save(tt.kind, models.Credentials{Login: tt.login}), tt.want)
		})
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(models.AccountMaster, models.Credentials{Login: 7001}))
	require.NoError(t, s.Save(models.AccountSlave, models.Credentials{Login: 7002}))
	require.NoError(t, s.Save(models.AccountSlave, models.Credentials{Login: 7003}))

	assert.ErrorIs(t, s.Remove(models.AccountSlave, 9999), exception.ErrAccountNotFound)
	assert.ErrorIs(t, s.Remove(models.AccountMaster, 7002), exception.ErrAccountNotFound)

	require.NoError(t, s.Remove(models.AccountSlave, 7002))
	accts, err := s.Load()
	require.NoError(t, err)
	require.Len(t, accts.Slaves, 1)
	assert.Equal(t, int64(7003), accts.Slaves[0].Login)

	require.NoError(t, s.Remove(models.AccountMaster, 7001))
	require.NoError(t, s.Clear())
	accts, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, accts.Master)
	assert.Empty(t, accts.Slaves)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".accounts-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files cleaned up")
}

func TestCorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("master: [oops"), 0o600))

	_, err := s.Load()
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}
