package audit

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/selfgate-project/selfgate/pkg/jsonutil"
	"github.com/selfgate-project/selfgate/pkg/model"
)

// SigAlg is the only signature algorithm reports carry.
const SigAlg = "ed25519"

// pubkeyIDLen is the hex-prefix length recorded as pubkey_id.
const pubkeyIDLen = 24

// signatureFields are stripped from the canonical serialization before
// signing so the signature never covers itself.
var signatureFields = []string{"signature", "pubkey_id", "sig_alg"}

// Signer signs reports with an Ed25519 key derived from a 32-byte seed.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner builds a signer from a hex-encoded 32-byte seed. An empty seed
// returns (nil, nil): signing is simply off.
func NewSigner(seedHex string) (*Signer, error) {
	if seedHex == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key: need %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// PublicKey returns the signer's public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}

// PubkeyID returns the identifier recorded on signed reports: the first 24
// hex characters of the public key.
func (s *Signer) PubkeyID() string {
	return hex.EncodeToString(s.pub)[:pubkeyIDLen]
}

// Sign computes the report signature over its canonical serialization minus
// the signature fields, then fills Signature, PubkeyID and SigAlg in place.
func (s *Signer) Sign(r *model.Report) error {
	msg, err := jsonutil.CanonicalMarshalStripped(r, signatureFields...)
	if err != nil {
		return fmt.Errorf("sign report: %w", err)
	}
	r.Signature = hex.EncodeToString(ed25519.Sign(s.priv, msg))
	r.PubkeyID = s.PubkeyID()
	r.SigAlg = SigAlg
	return nil
}

// VerifySignature checks a signed report against a public key. Unsigned
// reports verify trivially.
func VerifySignature(r *model.Report, pub ed25519.PublicKey) error {
	if r.Signature == "" {
		return nil
	}
	if r.SigAlg != SigAlg {
		return fmt.Errorf("verify report: unknown sig_alg %q", r.SigAlg)
	}
	sig, err := hex.DecodeString(r.Signature)
	if err != nil {
		return fmt.Errorf("verify report: %w", err)
	}
	msg, err := jsonutil.CanonicalMarshalStripped(r, signatureFields...)
	if err != nil {
		return fmt.Errorf("verify report: %w", err)
	}
	if !ed25519.Verify(pub, msg, sig) {
		return fmt.Errorf("verify report: signature mismatch")
	}
	return nil
}

// RecordHash hashes the full canonical report, signature included. The
// relational mirror stores it and chains each row to its predecessor's.
func RecordHash(r *model.Report) (string, error) {
	raw, err := jsonutil.CanonicalMarshal(r)
	if err != nil {
		return "", fmt.Errorf("record hash: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
