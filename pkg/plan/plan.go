package plan

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/lumera-labs/campaign-deploy/pkg/config"
	"github.com/lumera-labs/campaign-deploy/pkg/deploy"
	"github.com/lumera-labs/campaign-deploy/pkg/params"
	"github.com/lumera-labs/campaign-deploy/pkg/schedule"
	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

// Plan is everything derived from one deployment config.
type Plan struct {
	Schedule    types.ReleaseSchedule
	Params      types.DeploymentParameters
	Fingerprint string
}

type Planner struct {
	log zerolog.Logger
	now func() time.Time
}

func NewPlanner(log zerolog.Logger) *Planner {
	return &Planner{log: log, now: time.Now}
}

// Prepare builds and validates the schedule, then assembles the constructor
// tuple. The reference timezone comes from cfg, never from the host.
func (p *Planner) Prepare(cfg config.Deployment) (*Plan, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	b := schedule.NewBuilder(loc)

	s, err := b.BuildWithTotal(cfg.Periods, cfg.Amounts, cfg.TotalSupply)
	if err != nil {
		return nil, err
	}
	for i, e := range s.Entries() {
		p.log.Debug().
			Int("index", i).
			Str("period", string(cfg.Periods[i])).
			Str("unlock_at", e.Time.Time().Format(time.RFC3339)).
			Int64("epoch", int64(e.Time)).
			Str("amount", humanize.Comma(int64(e.Amount))).
			Msg("release")
	}

	dp, err := params.Assemble(cfg.CoinAddress, s)
	if err != nil {
		return nil, err
	}
	fp, err := params.Fingerprint(dp)
	if err != nil {
		return nil, err
	}
	now := p.now()
	p.log.Info().
		Str("coin", dp.CoinAddress.Hex()).
		Str("timezone", loc.String()).
		Int("entries", s.Len()).
		Str("total", s.Total()).
		Str("locked_now", s.LockedAt(now)).
		Str("released_now", s.ReleasedAt(now)).
		Str("final_unlock", s.End().Format(time.RFC3339)).
		Str("fingerprint", fp).
		Msg("deployment parameters assembled")

	return &Plan{Schedule: s, Params: dp, Fingerprint: fp}, nil
}

// Execute prepares the plan and hands it to d. When preparation fails d is
// never called.
func (p *Planner) Execute(ctx context.Context, cfg config.Deployment, d deploy.Deployer) (*deploy.Receipt, error) {
	pl, err := p.Prepare(cfg)
	if err != nil {
		p.log.Error().Err(err).Msg("deployment aborted before submission")
		return nil, err
	}
	r, err := d.Deploy(ctx, pl.Params)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("run_id", r.RunID).Bool("dry_run", r.DryRun).Str("contract", r.Contract).Msg("deployment finished")
	return r, nil
}
