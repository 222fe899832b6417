package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumera-labs/campaign-deploy/internal/logging"
	"github.com/lumera-labs/campaign-deploy/pkg/artifact"
	"github.com/lumera-labs/campaign-deploy/pkg/chain"
	"github.com/lumera-labs/campaign-deploy/pkg/config"
	"github.com/lumera-labs/campaign-deploy/pkg/deploy"
	"github.com/lumera-labs/campaign-deploy/pkg/plan"
	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

var (
	GitTag    = "dev"
	GitCommit = "unknown"
)

const (
	exitOK = iota
	exitConfig
	exitDerivation
	exitDeploy
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("campaign-deploy", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath   = fs.String("config", getEnv("CAMPAIGN_CONFIG", "configs/campaign.yaml"), "Path to deployment config (YAML or JSON)")
		envFile   = fs.String("env-file", getEnv("CAMPAIGN_ENV_FILE", ".env"), "Optional dotenv file with secrets")
		broadcast = fs.Bool("broadcast", false, "Send the deployment transaction (default is a dry run)")
		format    = fs.String("format", "json", "Dry-run output format: json or yaml")
		version   = fs.Bool("version", false, "Print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	if *version {
		fmt.Fprintf(stdout, "campaign-deploy %s (%s)\n", GitTag, GitCommit)
		return exitOK
	}
	switch strings.ToLower(*format) {
	case "json", "yaml", "yml":
	default:
		fmt.Fprintf(stderr, "configuration error: unknown -format %q (json or yaml)\n", *format)
		return exitConfig
	}

	envRequired := isFlagSet(fs, "env-file")
	if err := config.LoadEnvFile(*envFile, envRequired); err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitConfig
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if isDerivationError(err) {
			fmt.Fprintf(stderr, "invalid deployment parameters: %v\n", err)
			return exitDerivation
		}
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitConfig
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	log.Info().Str("version", GitTag).Str("commit", GitCommit).Str("config", *cfgPath).Bool("broadcast", *broadcast).Msg("campaign-deploy")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	planner := plan.NewPlanner(log)
	// Derive first: nothing touches the network until the tuple is valid.
	if _, err := planner.Prepare(cfg.Deployment); err != nil {
		log.Error().Err(err).Msg("invalid deployment parameters")
		return exitDerivation
	}

	var d deploy.Deployer = deploy.DryRun{W: stdout, Format: *format}
	if *broadcast {
		eth, closeFn, err := newEthDeployer(ctx, cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("deployer setup failed")
			return exitConfig
		}
		defer closeFn()
		d = eth
	}

	r, err := planner.Execute(ctx, cfg.Deployment, d)
	if err != nil {
		log.Error().Err(err).Msg("deployment failed")
		return exitDeploy
	}
	if !r.DryRun {
		fmt.Fprintf(stdout, "%s\n", r.Contract)
	}
	return exitOK
}

func newEthDeployer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*deploy.Eth, func(), error) {
	if err := cfg.ValidateBroadcast(); err != nil {
		return nil, nil, err
	}
	a, err := artifact.Load(cfg.Artifact)
	if err != nil {
		return nil, nil, err
	}
	client, err := chain.NewClient(ctx, cfg.Network.RPCURL, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, nil, err
	}
	eth, err := deploy.NewEthFromClient(client, a, cfg.Network.PrivateKey, cfg.Network.ChainID, cfg.Network.Timeout, cfg.Network.CheckCoinCode, log)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return eth, client.Close, nil
}

// isDerivationError reports whether err is one of the parameter validation
// kinds, wherever it was detected.
func isDerivationError(err error) bool {
	for _, kind := range []error{
		types.ErrShapeMismatch,
		types.ErrInvalidPeriodLabel,
		types.ErrNonMonotonicSchedule,
		types.ErrInvalidAmount,
		types.ErrInvalidAddress,
		types.ErrTotalMismatch,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
