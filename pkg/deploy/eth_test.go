package deploy

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumera-labs/campaign-deploy/pkg/artifact"
	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

const simulatedChainID = 1337

type fakePreflight struct {
	chainErr error
	hasCode  bool
	calls    int
}

func (f *fakePreflight) ExpectChainID(ctx context.Context, want int64) error {
	f.calls++
	return f.chainErr
}

func (f *fakePreflight) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	f.calls++
	return f.hasCode, nil
}

func loadArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()
	a, err := artifact.Load(filepath.Join("..", "artifact", "testdata", "CampaignManagement.json"))
	require.NoError(t, err)
	return a
}

func newSimulated(t *testing.T) (*simulated.Backend, *EthConfig) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	funds := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)

	sim := simulated.NewBackend(gethtypes.GenesisAlloc{from: {Balance: funds}})
	t.Cleanup(func() { _ = sim.Close() })

	return sim, &EthConfig{
		Artifact: loadArtifact(t),
		Backend:  sim.Client(),
		Key:      key,
		ChainID:  simulatedChainID,
		Timeout:  30 * time.Second,
		Log:      zerolog.Nop(),
	}
}

func TestEth_DeploysOnSimulatedChain(t *testing.T) {
	sim, cfg := newSimulated(t)
	e, err := NewEth(*cfg)
	require.NoError(t, err)

	// mine blocks until the deployment returns
	done := make(chan struct{})
	defer close(done)
	go func() {
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				sim.Commit()
			}
		}
	}()

	r, err := e.Deploy(context.Background(), testParams())
	require.NoError(t, err)
	assert.False(t, r.DryRun)
	assert.NotEmpty(t, r.TxHash)
	assert.True(t, common.IsHexAddress(r.Contract))

	code, err := sim.Client().CodeAt(context.Background(), common.HexToAddress(r.Contract), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
}

func TestEth_PreflightStopsDeployment(t *testing.T) {
	_, cfg := newSimulated(t)

	pf := &fakePreflight{chainErr: errors.New("wrong chain")}
	cfg.Preflight = pf
	e, err := NewEth(*cfg)
	require.NoError(t, err)
	_, err = e.Deploy(context.Background(), testParams())
	assert.EqualError(t, err, "wrong chain")

	pf = &fakePreflight{hasCode: false}
	cfg.Preflight = pf
	cfg.CheckCoinCode = true
	e, err = NewEth(*cfg)
	require.NoError(t, err)
	_, err = e.Deploy(context.Background(), testParams())
	assert.ErrorIs(t, err, types.ErrInvalidAddress)
	assert.Equal(t, 2, pf.calls)
}

func TestEth_RejectsRaggedTuple(t *testing.T) {
	_, cfg := newSimulated(t)
	pf := &fakePreflight{hasCode: true}
	cfg.Preflight = pf
	e, err := NewEth(*cfg)
	require.NoError(t, err)

	p := testParams()
	p.Amounts = nil
	_, err = e.Deploy(context.Background(), p)
	assert.ErrorIs(t, err, types.ErrShapeMismatch)
	assert.Zero(t, pf.calls)
}

func TestNewEth_RequiresFields(t *testing.T) {
	_, err := NewEth(EthConfig{})
	assert.Error(t, err)
}

func TestNewEth_CoinCodeCheckNeedsPreflight(t *testing.T) {
	_, cfg := newSimulated(t)
	cfg.CheckCoinCode = true
	_, err := NewEth(*cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight")

	cfg.Preflight = &fakePreflight{hasCode: true}
	_, err = NewEth(*cfg)
	assert.NoError(t, err)
}

func TestParseKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hex := common.Bytes2Hex(crypto.FromECDSA(key))

	got, err := ParseKey("0x" + hex)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(got.PublicKey))

	_, err = ParseKey("not-a-key")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "not-a-key")
}
