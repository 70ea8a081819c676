package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfgate-project/selfgate/internal/symbols"
	"github.com/selfgate-project/selfgate/pkg/logging"
	"github.com/selfgate-project/selfgate/pkg/model"
)

const testSeedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func testExtractor(t *testing.T) symbols.Extractor {
	t.Helper()
	ex, err := symbols.New("regex")
	require.NoError(t, err)
	return ex
}

func TestBuildReportHashesAndID(t *testing.T) {
	oldContent := "package x\n\nfunc Old() {}\n"
	newContent := "package x\n\nfunc New() {}\n"

	r := BuildReport(testExtractor(t), "src/x.go", oldContent, newContent, "tester", "rename function")

	oldSum := sha256.Sum256([]byte(oldContent))
	require.Equal(t, hex.EncodeToString(oldSum[:]), r.OldSHA256)
	newSum := sha256.Sum256([]byte(newContent))
	require.Equal(t, hex.EncodeToString(newSum[:]), r.NewSHA256)

	diffSum := sha256.Sum256([]byte(r.Diff))
	require.Equal(t, hex.EncodeToString(diffSum[:]), r.DiffSHA256)

	assert.Contains(t, r.ASTDelta.AddedDefs, "New")
	assert.Contains(t, r.ASTDelta.RemovedDefs, "Old")
	assert.NotNil(t, r.ASTDelta.AddedCalls)

	wantID := fmt.Sprintf("%d_x.go_%s", r.TS, r.DiffSHA256[:12])
	require.Equal(t, wantID, r.ID())
}

func TestSignAndVerify(t *testing.T) {
	signer, err := NewSigner(testSeedHex)
	require.NoError(t, err)

	r := BuildReport(testExtractor(t), "a.go", "", "package a\n", "tester", "create")
	require.NoError(t, signer.Sign(r))

	require.Equal(t, SigAlg, r.SigAlg)
	require.Len(t, r.PubkeyID, pubkeyIDLen)
	require.True(t, strings.HasPrefix(hex.EncodeToString(signer.PublicKey()), r.PubkeyID))

	require.NoError(t, VerifySignature(r, signer.PublicKey()))

	// Any field covered by the signature invalidates it when changed.
	r.Intent = "tampered"
	require.Error(t, VerifySignature(r, signer.PublicKey()))
}

func TestVerifyUnsignedReport(t *testing.T) {
	r := &model.Report{File: "a.go"}
	require.NoError(t, VerifySignature(r, nil))
}

func TestNewSignerValidation(t *testing.T) {
	s, err := NewSigner("")
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = NewSigner("zz")
	require.Error(t, err)

	_, err = NewSigner("abcd")
	require.Error(t, err)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	signer, err := NewSigner(testSeedHex)
	require.NoError(t, err)
	store, err := NewStore(t.TempDir(), signer, false, logging.Nop())
	require.NoError(t, err)
	defer store.Close()

	r := BuildReport(testExtractor(t), "b.go", "old\n", "new\n", "tester", "rewrite")
	r.Assessment = model.Assessment{RecommendAllow: true, Reasoning: "ok"}
	r.ExplanationErrors = []string{}

	path, err := store.Save(r)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, r.ID()+".json"))

	got, err := store.Load(r.ID())
	require.NoError(t, err)
	require.Equal(t, r.DiffSHA256, got.DiffSHA256)
	require.Equal(t, r.Signature, got.Signature)
	require.NoError(t, VerifySignature(got, signer.PublicKey()))

	ids, err := store.List()
	require.NoError(t, err)
	require.Equal(t, []string{r.ID()}, ids)
}

func TestMirrorChaining(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil, true, logging.Nop())
	require.NoError(t, err)
	defer store.Close()
	require.NotNil(t, store.Mirror())

	r1 := BuildReport(testExtractor(t), "c.go", "", "v1\n", "tester", "first")
	_, err = store.Save(r1)
	require.NoError(t, err)

	r2 := BuildReport(testExtractor(t), "c.go", "v1\n", "v2\n", "tester", "second")
	_, err = store.Save(r2)
	require.NoError(t, err)

	chain, err := store.Mirror().Chain()
	require.NoError(t, err)
	require.Len(t, chain, 2)

	require.Empty(t, chain[0].PrevHash)
	require.Equal(t, chain[0].RecordHash, chain[1].PrevHash)

	h1, err := RecordHash(r1)
	require.NoError(t, err)
	require.Equal(t, h1, chain[0].RecordHash)

	ids, err := store.Mirror().History("c.go", 0)
	require.NoError(t, err)
	require.Equal(t, []string{r2.ID(), r1.ID()}, ids)

	ids, err = store.Mirror().History("", 1)
	require.NoError(t, err)
	require.Equal(t, []string{r2.ID()}, ids)
}

func TestRecordHashDeterministic(t *testing.T) {
	r := BuildReport(testExtractor(t), "d.go", "", "x\n", "tester", "create")
	h1, err := RecordHash(r)
	require.NoError(t, err)
	h2, err := RecordHash(r)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}
