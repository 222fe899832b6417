package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lumera-labs/campaign-deploy/pkg/params"
	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

const coin = "0x4f730f7a5acebA1CdBf6EB5aAeB8686D8eA37680"

func testParams() types.DeploymentParameters {
	return types.DeploymentParameters{
		CoinAddress: common.HexToAddress(coin),
		Times:       []types.EpochSeconds{1622505600, 1638316800},
		Amounts:     []types.ReleaseAmount{74666667, 48000000},
	}
}

func TestDryRun_JSON(t *testing.T) {
	var buf bytes.Buffer
	r, err := DryRun{W: &buf}.Deploy(context.Background(), testParams())
	require.NoError(t, err)
	assert.True(t, r.DryRun)
	assert.NotEmpty(t, r.RunID)
	assert.Empty(t, r.TxHash)

	var out paramsView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, common.HexToAddress(coin).Hex(), out.CoinAddress)
	assert.Equal(t, []int64{1622505600, 1638316800}, out.Times)
	assert.Equal(t, []int64{74666667, 48000000}, out.Amounts)
	assert.Equal(t, "2021-06-01T00:00:00Z", out.Releases[0].At)
	assert.Equal(t, "2021-12-01T00:00:00Z", out.Releases[1].At)
	assert.Equal(t, r.RunID, out.RunID)

	fp, err := params.Fingerprint(testParams())
	require.NoError(t, err)
	assert.Equal(t, fp, out.Fingerprint)
	assert.Equal(t, fp, r.Fingerprint)
}

func TestDryRun_YAML(t *testing.T) {
	var buf bytes.Buffer
	_, err := DryRun{W: &buf, Format: "yaml"}.Deploy(context.Background(), testParams())
	require.NoError(t, err)

	var out paramsView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []int64{1622505600, 1638316800}, out.Times)
	assert.Contains(t, buf.String(), "constructor_args:")
	assert.True(t, strings.HasPrefix(out.Encoded, "0x"))
}

func TestDryRun_ReportsLockedAndReleased(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := DryRun{W: &buf, Now: func() time.Time { return at }}.Deploy(context.Background(), testParams())
	require.NoError(t, err)

	var out paramsView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "122666667", out.Total)
	assert.Equal(t, "2021-09-01T00:00:00Z", out.AsOf)
	assert.Equal(t, "48000000", out.Locked)
	assert.Equal(t, "74666667", out.Released)
	assert.Equal(t, "2021-12-01T00:00:00Z", out.FinalUnlock)
}

func TestDryRun_Errors(t *testing.T) {
	var buf bytes.Buffer
	_, err := DryRun{W: &buf, Format: "xml"}.Deploy(context.Background(), testParams())
	assert.Error(t, err)

	ragged := testParams()
	ragged.Amounts = ragged.Amounts[:1]
	_, err = DryRun{W: &buf}.Deploy(context.Background(), ragged)
	assert.ErrorIs(t, err, types.ErrShapeMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DryRun{W: &buf}.Deploy(ctx, testParams())
	assert.ErrorIs(t, err, context.Canceled)
}
