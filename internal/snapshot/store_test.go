package snapshot_test

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/selfgate-project/selfgate/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKeyHex(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return hex.EncodeToString(key)
}

func writeTarget(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTake_PlaintextSnapshot(t *testing.T) {
	store, err := snapshot.NewStore(t.TempDir(), "", "")
	require.NoError(t, err)
	target := writeTarget(t, "previous content\n")

	snapPath, meta, err := store.Take(target, "previous content\n", "1700000000_0a1b2c3d4e5f")
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Contains(t, filepath.Base(snapPath), "target.go.")
	assert.Contains(t, snapPath, ".bak")

	data, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	assert.Equal(t, "previous content\n", string(data))
}

func TestTake_MissingFileSkipsSnapshot(t *testing.T) {
	store, err := snapshot.NewStore(t.TempDir(), "", "")
	require.NoError(t, err)

	snapPath, meta, err := store.Take(filepath.Join(t.TempDir(), "absent.go"), "", "1700000000_0a1b2c3d4e5f")
	require.NoError(t, err)
	assert.Empty(t, snapPath)
	assert.Nil(t, meta)
}

func TestTake_EncryptedRoundTrip(t *testing.T) {
	store, err := snapshot.NewStore(t.TempDir(), randomKeyHex(t), "")
	require.NoError(t, err)
	require.True(t, store.Encrypted())

	plain := "secret previous content\n"
	target := writeTarget(t, plain)

	snapPath, meta, err := store.Take(target, plain, "1700000000_0a1b2c3d4e5f")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Contains(t, snapPath, ".enc")
	assert.Len(t, meta.Nonce, 24, "96-bit nonce as hex")
	assert.Len(t, meta.Tag, 32, "128-bit tag as hex")
	assert.Len(t, meta.KeyID, 16, "derived key id is 8 bytes hex")

	ciphertext, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	assert.NotEqual(t, plain, string(ciphertext))

	recovered, err := store.Decrypt(ciphertext, meta)
	require.NoError(t, err)
	assert.Equal(t, plain, string(recovered))
}

func TestTake_ConfiguredKeyID(t *testing.T) {
	store, err := snapshot.NewStore(t.TempDir(), randomKeyHex(t), "prod-key-7")
	require.NoError(t, err)
	target := writeTarget(t, "content")

	_, meta, err := store.Take(target, "content", "1700000000_0a1b2c3d4e5f")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "prod-key-7", meta.KeyID)
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	store, err := snapshot.NewStore(t.TempDir(), randomKeyHex(t), "")
	require.NoError(t, err)
	target := writeTarget(t, "content to protect")

	snapPath, meta, err := store.Take(target, "content to protect", "1700000000_0a1b2c3d4e5f")
	require.NoError(t, err)

	ciphertext, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	ciphertext[0] ^= 0xff

	_, err = store.Decrypt(ciphertext, meta)
	assert.Error(t, err, "GCM must reject tampered ciphertext")
}

func TestNewStore_RejectsBadKeys(t *testing.T) {
	_, err := snapshot.NewStore(t.TempDir(), "not-hex", "")
	assert.Error(t, err)

	_, err = snapshot.NewStore(t.TempDir(), "abcd", "")
	assert.Error(t, err, "short keys are rejected")
}

func TestTake_DistinctTagsPreserveEarlierSnapshots(t *testing.T) {
	store, err := snapshot.NewStore(t.TempDir(), "", "")
	require.NoError(t, err)

	dir := t.TempDir()
	target := filepath.Join(dir, "target.go")
	require.NoError(t, os.WriteFile(target, []byte("v1\n"), 0o644))

	first, _, err := store.Take(target, "v1\n", "1700000000_aaaaaaaaaaaa")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("v2\n"), 0o644))
	second, _, err := store.Take(target, "v2\n", "1700000001_bbbbbbbbbbbb")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "v1\n", string(data), "earlier snapshot must survive later applies")
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "v2\n", string(data))
}

func TestTake_EmptyExistingFileUsesPlaintextPath(t *testing.T) {
	// Encryption requires non-empty content; an empty file still gets a
	// plaintext snapshot so rollback stays possible.
	store, err := snapshot.NewStore(t.TempDir(), randomKeyHex(t), "")
	require.NoError(t, err)
	target := writeTarget(t, "")

	snapPath, meta, err := store.Take(target, "", "1700000000_0a1b2c3d4e5f")
	require.NoError(t, err)
	assert.Contains(t, snapPath, ".bak")
	assert.Nil(t, meta)
}
