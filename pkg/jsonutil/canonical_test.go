package jsonutil_test

import (
	"testing"

	"github.com/selfgate-project/selfgate/pkg/jsonutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalMarshal_SortsKeys(t *testing.T) {
	v := map[string]any{"zeta": 1, "alpha": 2, "mid": 3}
	out, err := jsonutil.CanonicalMarshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(out))
}

func TestCanonicalMarshal_Deterministic(t *testing.T) {
	v := map[string]any{
		"nested": map[string]any{"b": []any{1, 2}, "a": "x"},
		"top":    nil,
	}
	first, err := jsonutil.CanonicalMarshal(v)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := jsonutil.CanonicalMarshal(v)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestCanonicalMarshal_StructTags(t *testing.T) {
	type payload struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	out, err := jsonutil.CanonicalMarshal(payload{B: "two", A: "one"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"one","b":"two"}`, string(out))
}

func TestCanonicalMarshalStripped_RemovesTopLevelKeys(t *testing.T) {
	v := map[string]any{"keep": 1, "signature": "abc", "sig_alg": "ed25519"}
	out, err := jsonutil.CanonicalMarshalStripped(v, "signature", "sig_alg")
	require.NoError(t, err)
	assert.Equal(t, `{"keep":1}`, string(out))
}

func TestCanonicalMarshalStripped_MissingKeyIsNoop(t *testing.T) {
	v := map[string]any{"keep": 1}
	out, err := jsonutil.CanonicalMarshalStripped(v, "absent")
	require.NoError(t, err)
	assert.Equal(t, `{"keep":1}`, string(out))
}
