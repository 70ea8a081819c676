// Package snapshot stores a copy of a file's content immediately before it
// is overwritten. Snapshots are write-once, used only for manual rollback,
// and stored either as plaintext or as AES-256-GCM ciphertext.
package snapshot

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/selfgate-project/selfgate/pkg/fsutil"
)

const (
	nonceSize = 12 // 96-bit GCM nonce
	tagSize   = 16 // 128-bit authentication tag
)

// CryptoMeta describes how an encrypted snapshot can be decrypted later.
// All fields are lowercase hex.
type CryptoMeta struct {
	KeyID string
	Nonce string
	Tag   string
}

// Store writes pre-write snapshots into a directory.
type Store struct {
	dir   string
	key   []byte // nil means plaintext snapshots
	keyID string
}

// NewStore creates a snapshot store. keyHex, when non-empty, must decode to
// a 32-byte AES-256 key; keyID defaults to the first 8 bytes of the key's
// SHA-256, hex encoded.
func NewStore(dir, keyHex, keyID string) (*Store, error) {
	s := &Store{dir: dir}
	if keyHex == "" {
		return s, nil
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("snapshot key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("snapshot key: need 32 bytes, got %d", len(key))
	}
	s.key = key
	if keyID == "" {
		sum := sha256.Sum256(key)
		keyID = hex.EncodeToString(sum[:8])
	}
	s.keyID = keyID
	return s, nil
}

// Encrypted reports whether snapshots will be stored as ciphertext.
func (s *Store) Encrypted() bool {
	return s.key != nil
}

// Take snapshots targetPath's previous content. tag must be unique per
// apply (the caller derives it from the report's timestamp and diff hash);
// it keeps snapshots write-once, so repeated applies to the same file never
// overwrite the snapshot an earlier report already points at. When the file
// did not previously exist Take returns an empty path and nil metadata.
// Metadata is non-nil only for encrypted snapshots.
func (s *Store) Take(targetPath, oldContent, tag string) (string, *CryptoMeta, error) {
	if _, err := os.Stat(targetPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("stat snapshot source: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.%d", filepath.Base(targetPath), tag, os.Getpid())

	if s.key != nil && oldContent != "" {
		dst := filepath.Join(s.dir, name+".enc")
		meta, err := s.writeEncrypted(dst, []byte(oldContent))
		if err != nil {
			return "", nil, err
		}
		return dst, meta, nil
	}

	dst := filepath.Join(s.dir, name+".bak")
	if err := fsutil.AtomicWrite(dst, []byte(oldContent), 0o640); err != nil {
		return "", nil, fmt.Errorf("write snapshot: %w", err)
	}
	return dst, nil, nil
}

func (s *Store) writeEncrypted(dst string, plain []byte) (*CryptoMeta, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("snapshot cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("snapshot gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("snapshot nonce: %w", err)
	}

	// Seal appends the tag to the ciphertext; the file stores only the
	// ciphertext and the tag travels in the report metadata.
	sealed := gcm.Seal(nil, nonce, plain, nil)
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	if err := fsutil.AtomicWrite(dst, ct, 0o640); err != nil {
		return nil, fmt.Errorf("write encrypted snapshot: %w", err)
	}
	return &CryptoMeta{
		KeyID: s.keyID,
		Nonce: hex.EncodeToString(nonce),
		Tag:   hex.EncodeToString(tag),
	}, nil
}

// Decrypt recovers the plaintext of an encrypted snapshot from its
// ciphertext and report metadata. It authenticates via the GCM tag.
func (s *Store) Decrypt(ciphertext []byte, meta *CryptoMeta) ([]byte, error) {
	if s.key == nil {
		return nil, fmt.Errorf("snapshot decrypt: no key configured")
	}
	nonce, err := hex.DecodeString(meta.Nonce)
	if err != nil {
		return nil, fmt.Errorf("snapshot nonce: %w", err)
	}
	tag, err := hex.DecodeString(meta.Tag)
	if err != nil {
		return nil, fmt.Errorf("snapshot tag: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("snapshot cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("snapshot gcm: %w", err)
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot decrypt: %w", err)
	}
	return plain, nil
}
