package model_test

import (
	"encoding/json"
	"testing"

	"github.com/selfgate-project/selfgate/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportID_Derivation(t *testing.T) {
	r := &model.Report{
		TS:         1700000000,
		File:       "src/core/engine.go",
		DiffSHA256: "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789",
	}
	assert.Equal(t, "1700000000_engine.go_abcdef012345", r.ID())
}

func TestReportID_ShortDiffHash(t *testing.T) {
	r := &model.Report{TS: 1, File: "f", DiffSHA256: "abc"}
	assert.Equal(t, "1_f_abc", r.ID())
}

func TestNewSymbolDelta_NonNilSlices(t *testing.T) {
	d := model.NewSymbolDelta(nil, nil)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"added_defs":[],"removed_defs":[],"added_calls":[],"removed_calls":[]}`, string(data))
	assert.True(t, d.Empty())
}

func TestSymbolDelta_Changed(t *testing.T) {
	d := model.NewSymbolDelta([]string{"foo"}, []string{"bar"})
	assert.False(t, d.Empty())
	assert.Equal(t, []string{"foo", "bar"}, d.Changed())
}

func TestReport_PrevHashNotSerialized(t *testing.T) {
	r := &model.Report{TS: 1, File: "f", PrevHash: "deadbeef"}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "deadbeef")
}

func TestReport_SignatureBlockOmittedWhenUnsigned(t *testing.T) {
	r := &model.Report{TS: 1, File: "f"}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "signature")
	assert.NotContains(t, string(data), "sig_alg")
}
