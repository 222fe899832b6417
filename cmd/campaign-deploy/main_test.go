package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun_DryRunPrintsTuple(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join("..", "..", "configs", "campaign.yaml"), "-env-file="}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var out struct {
		CoinAddress string  `json:"coin_address"`
		Times       []int64 `json:"times"`
		Amounts     []int64 `json:"amounts"`
		Fingerprint string  `json:"fingerprint"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "0x4f730f7a5acebA1CdBf6EB5aAeB8686D8eA37680", out.CoinAddress)
	assert.Len(t, out.Times, 10)
	assert.Len(t, out.Amounts, 10)
	assert.Equal(t, int64(1622505600), out.Times[0])
	assert.Equal(t, int64(1638316800), out.Times[1])
	assert.NotEmpty(t, out.Fingerprint)
}

func TestRun_DerivationErrorPrintsNothing(t *testing.T) {
	cfg := writeConfig(t, `
deployment:
  coin_address: "0x4f730f7a5acebA1CdBf6EB5aAeB8686D8eA37680"
  periods: ["2021/06", "2021/13"]
  amounts: [1, 2]
`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfg, "-env-file="}, &stdout, &stderr)
	assert.Equal(t, exitDerivation, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "periods[1]")
}

func TestRun_CoercibleAmountIsRejected(t *testing.T) {
	cfg := writeConfig(t, `
deployment:
  coin_address: "0x4f730f7a5acebA1CdBf6EB5aAeB8686D8eA37680"
  periods: ["2021/06", "2021/12"]
  amounts: [74666667, 1.9]
`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfg, "-env-file="}, &stdout, &stderr)
	assert.Equal(t, exitDerivation, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "amounts[1]")
}

func TestRun_UnknownFormatIsConfigError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join("..", "..", "configs", "campaign.yaml"), "-env-file=", "-format=xml"}, &stdout, &stderr)
	assert.Equal(t, exitConfig, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "xml")
}

func TestRun_ConfigErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitConfig, run([]string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "-env-file="}, &stdout, &stderr))
	assert.Equal(t, exitConfig, run([]string{"-no-such-flag"}, &stdout, &stderr))
	assert.Equal(t, exitConfig, run([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}, &stdout, &stderr))
}

func TestRun_BroadcastNeedsKey(t *testing.T) {
	t.Setenv("CAMPAIGN_NETWORK_PRIVATE_KEY", "")
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join("..", "..", "configs", "campaign.yaml"), "-env-file=", "-broadcast"}, &stdout, &stderr)
	assert.Equal(t, exitConfig, code)
	assert.Empty(t, stdout.String())
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"-version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "campaign-deploy dev")
}
