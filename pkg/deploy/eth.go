package deploy

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"github.com/lumera-labs/campaign-deploy/pkg/artifact"
	"github.com/lumera-labs/campaign-deploy/pkg/chain"
	"github.com/lumera-labs/campaign-deploy/pkg/params"
	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

// Backend is what Eth needs from a node: sending the creation transaction and
// waiting for its receipt.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Preflight is the subset of chain.Client used before sending.
type Preflight interface {
	ExpectChainID(ctx context.Context, want int64) error
	HasCode(ctx context.Context, addr common.Address) (bool, error)
}

type EthConfig struct {
	Artifact      *artifact.Artifact
	Backend       Backend
	Preflight     Preflight // optional unless CheckCoinCode is set
	Key           *ecdsa.PrivateKey
	ChainID       int64
	Timeout       time.Duration
	CheckCoinCode bool
	Log           zerolog.Logger
}

// Eth deploys the artifact's creation code with the campaign parameters.
type Eth struct {
	cfg EthConfig
}

func NewEth(cfg EthConfig) (*Eth, error) {
	if cfg.Artifact == nil {
		return nil, errors.New("deploy: artifact is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("deploy: backend is required")
	}
	if cfg.Key == nil {
		return nil, errors.New("deploy: private key is required")
	}
	if cfg.ChainID <= 0 {
		return nil, errors.New("deploy: chain id is required")
	}
	if cfg.CheckCoinCode && cfg.Preflight == nil {
		return nil, errors.New("deploy: coin code check needs a preflight client")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Eth{cfg: cfg}, nil
}

// NewEthFromClient wires Eth to a chain.Client, which serves as both backend
// and preflight.
func NewEthFromClient(c *chain.Client, a *artifact.Artifact, hexKey string, chainID int64, timeout time.Duration, checkCoinCode bool, log zerolog.Logger) (*Eth, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewEth(EthConfig{
		Artifact:      a,
		Backend:       c.Eth(),
		Preflight:     c,
		Key:           key,
		ChainID:       chainID,
		Timeout:       timeout,
		CheckCoinCode: checkCoinCode,
		Log:           log,
	})
}

// ParseKey decodes a hex secp256k1 private key, with or without 0x.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		// never echo the key itself
		return nil, errors.New("deploy: invalid private key")
	}
	return key, nil
}

func (e *Eth) Deploy(ctx context.Context, p types.DeploymentParameters) (*Receipt, error) {
	if len(p.Times) == 0 || len(p.Times) != len(p.Amounts) {
		return nil, types.NewFieldError(types.ErrShapeMismatch, "", "", "refusing to deploy a ragged or empty parameter tuple")
	}
	fp, err := params.Fingerprint(p)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if pf := e.cfg.Preflight; pf != nil {
		if err := pf.ExpectChainID(ctx, e.cfg.ChainID); err != nil {
			return nil, err
		}
		if e.cfg.CheckCoinCode {
			ok, err := pf.HasCode(ctx, p.CoinAddress)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, types.NewFieldError(types.ErrInvalidAddress, "coin_address", p.CoinAddress.Hex(), "no contract code at address")
			}
		}
	}

	opts, err := bind.NewKeyedTransactorWithChainID(e.cfg.Key, big.NewInt(e.cfg.ChainID))
	if err != nil {
		return nil, xerrors.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	runID := newRunID()
	log := e.cfg.Log.With().Str("run_id", runID).Str("contract", e.cfg.Artifact.Name).Str("fingerprint", fp).Logger()
	log.Info().Str("from", opts.From.Hex()).Msg("sending creation transaction")

	addr, tx, _, err := bind.DeployContract(opts, e.cfg.Artifact.ABI, e.cfg.Artifact.Bytecode, e.cfg.Backend, p.Args()...)
	if err != nil {
		return nil, xerrors.Errorf("deploy %s: %w", e.cfg.Artifact.Name, err)
	}
	log.Info().Str("tx", tx.Hash().Hex()).Str("address", addr.Hex()).Msg("creation transaction sent")

	deployed, err := bind.WaitDeployed(ctx, e.cfg.Backend, tx)
	if err != nil {
		return nil, xerrors.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	log.Info().Str("address", deployed.Hex()).Msg("contract deployed")

	return &Receipt{
		RunID:       runID,
		Contract:    deployed.Hex(),
		TxHash:      tx.Hash().Hex(),
		Fingerprint: fp,
	}, nil
}
