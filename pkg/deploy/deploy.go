// Package deploy hands assembled parameters to a deployment backend: either a
// dry run that prints them, or a live go-ethereum deployment.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lumera-labs/campaign-deploy/pkg/params"
	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

// Deployer issues the one-time constructor call with (address, times, amounts).
type Deployer interface {
	Deploy(ctx context.Context, p types.DeploymentParameters) (*Receipt, error)
}

// Receipt describes a finished deployment attempt.
type Receipt struct {
	RunID       string `json:"run_id" yaml:"run_id"`
	Contract    string `json:"contract,omitempty" yaml:"contract,omitempty"`
	TxHash      string `json:"tx_hash,omitempty" yaml:"tx_hash,omitempty"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	DryRun      bool   `json:"dry_run" yaml:"dry_run"`
}

func newRunID() string { return uuid.NewString() }

// DryRun writes the parameter tuple instead of deploying.
type DryRun struct {
	W      io.Writer
	Format string // "json" (default) or "yaml"
	// Now stamps the locked and released totals; nil means time.Now.
	Now func() time.Time
}

type releaseView struct {
	Time   int64  `json:"time" yaml:"time"`
	At     string `json:"at" yaml:"at"`
	Amount int64  `json:"amount" yaml:"amount"`
}

type paramsView struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	CoinAddress string        `json:"coin_address" yaml:"coin_address"`
	Times       []int64       `json:"times" yaml:"times"`
	Amounts     []int64       `json:"amounts" yaml:"amounts"`
	Releases    []releaseView `json:"releases" yaml:"releases"`
	Total       string        `json:"total" yaml:"total"`
	AsOf        string        `json:"as_of" yaml:"as_of"`
	Locked      string        `json:"locked" yaml:"locked"`
	Released    string        `json:"released" yaml:"released"`
	FinalUnlock string        `json:"final_unlock" yaml:"final_unlock"`
	Encoded     string        `json:"constructor_args" yaml:"constructor_args"`
	Fingerprint string        `json:"fingerprint" yaml:"fingerprint"`
}

// project is the printable shape of p: the positional tuple plus a readable
// per-entry view and the locked/released split at now.
func project(runID string, p types.DeploymentParameters, now time.Time) (*paramsView, error) {
	enc, err := params.EncodeHex(p)
	if err != nil {
		return nil, err
	}
	fp, err := params.Fingerprint(p)
	if err != nil {
		return nil, err
	}
	s := p.Schedule()
	v := &paramsView{
		RunID:       runID,
		CoinAddress: p.CoinAddress.Hex(),
		Times:       make([]int64, len(p.Times)),
		Amounts:     make([]int64, len(p.Amounts)),
		Releases:    make([]releaseView, len(p.Times)),
		Total:       s.Total(),
		AsOf:        now.UTC().Format(time.RFC3339),
		Locked:      s.LockedAt(now),
		Released:    s.ReleasedAt(now),
		FinalUnlock: s.End().Format(time.RFC3339),
		Encoded:     enc,
		Fingerprint: fp,
	}
	for i := range p.Times {
		v.Times[i] = int64(p.Times[i])
		v.Amounts[i] = int64(p.Amounts[i])
		v.Releases[i] = releaseView{Time: int64(p.Times[i]), At: p.Times[i].Time().Format(time.RFC3339), Amount: int64(p.Amounts[i])}
	}
	return v, nil
}

func (d DryRun) Deploy(ctx context.Context, p types.DeploymentParameters) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	runID := newRunID()
	v, err := project(runID, p, now())
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(d.Format) {
	case "", "json":
		enc := json.NewEncoder(d.W)
		enc.SetIndent("", "  ")
		err = enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(d.W)
		enc.SetIndent(2)
		err = enc.Encode(v)
		if err == nil {
			err = enc.Close()
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", d.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("write parameters: %w", err)
	}
	return &Receipt{RunID: runID, Fingerprint: v.Fingerprint, DryRun: true}, nil
}
