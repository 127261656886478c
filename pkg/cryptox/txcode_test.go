package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-pepper")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestGenerateTxCode(t *testing.T) {
	for _, length := range []int{6, 8} {
		code, err := GenerateTxCode(length)
		require.NoError(t, err)
		require.Len(t, code, length)
		require.Empty(t, strings.Trim(code, "0123456789"), "code must be numeric: %q", code)
	}

	t.Run("rejects unsupported lengths", func(t *testing.T) {
		for _, length := range []int{0, 4, 7, 10} {
			_, err := GenerateTxCode(length)
			require.ErrorIs(t, err, ErrUnsupportedTxCodeLength)
		}
	})

	t.Run("codes vary", func(t *testing.T) {
		seen := map[string]struct{}{}
		for range 20 {
			code, err := GenerateTxCode(6)
			require.NoError(t, err)
			seen[code] = struct{}{}
		}
		require.Greater(t, len(seen), 1)
	})
}

func TestHashAndVerifyTxCode(t *testing.T) {
	hash, err := HashTxCode("123456")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyTxCode("123456", hash))
	require.ErrorIs(t, VerifyTxCode("000000", hash), ErrTxCodeMismatch)
	require.ErrorIs(t, VerifyTxCode("", hash), ErrTxCodeMismatch)

	t.Run("salted", func(t *testing.T) {
		again, err := HashTxCode("123456")
		require.NoError(t, err)
		require.NotEqual(t, hash, again)
	})

	t.Run("malformed hash", func(t *testing.T) {
		require.Error(t, VerifyTxCode("123456", "plain"))
		require.Error(t, VerifyTxCode("123456", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb"))
		require.Error(t, VerifyTxCode("123456", "$argon2id$v=19$garbage$aa$bb"))
	})
}

func TestLoadPepper(t *testing.T) {
	file := filepath.Join(t.TempDir(), "shared", "pepper")

	SetPepperPath(file)
	generated, err := LoadPepper()
	require.NoError(t, err)
	require.True(t, generated)

	hash, err := HashTxCode("123456")
	require.NoError(t, err)

	// a second instance mounting the same file reuses the pepper
	SetPepperPath(file)
	generated, err = LoadPepper()
	require.NoError(t, err)
	require.False(t, generated)
	require.NoError(t, VerifyTxCode("123456", hash))

	// a different pepper cannot verify it
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	require.ErrorIs(t, VerifyTxCode("123456", hash), ErrTxCodeMismatch)
}
