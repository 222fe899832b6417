// Package config loads the static deployment configuration: the coin address,
// the release periods and amounts, and the settings needed to broadcast.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve the same on every host

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"

	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. CAMPAIGN_NETWORK_RPC_URL.
const EnvPrefix = "CAMPAIGN"

type Config struct {
	Deployment Deployment `mapstructure:"deployment"`
	Network    Network    `mapstructure:"network"`
	// Artifact is the compiled contract JSON (abi + bytecode).
	Artifact string    `mapstructure:"artifact"`
	Log      LogConfig `mapstructure:"log"`
}

// Deployment is the input to schedule.Builder and params.Assemble.
type Deployment struct {
	CoinAddress string              `mapstructure:"coin_address"`
	Timezone    string              `mapstructure:"timezone"`
	Periods     []types.PeriodLabel `mapstructure:"periods"`
	// Amounts is decoded strictly by Load, see decodeAmounts.
	Amounts []types.ReleaseAmount `mapstructure:"-"`
	// TotalSupply, if set, must equal the sum of Amounts.
	TotalSupply string `mapstructure:"total_supply"`
}

type Network struct {
	RPCURL     string        `mapstructure:"rpc_url"`
	ChainID    int64         `mapstructure:"chain_id"`
	PrivateKey string        `mapstructure:"private_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// CheckCoinCode refuses to deploy when no contract code lives at the coin address.
	CheckCoinCode bool `mapstructure:"check_coin_code"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads a YAML or JSON config file and applies CAMPAIGN_* environment
// overrides. The file is required.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	v := viper.New()

	v.SetDefault("deployment.coin_address", "")
	v.SetDefault("deployment.timezone", "UTC")
	v.SetDefault("deployment.total_supply", "")
	v.SetDefault("network.rpc_url", "")
	v.SetDefault("network.chain_id", 0)
	v.SetDefault("network.private_key", "")
	v.SetDefault("network.timeout", "5m")
	v.SetDefault("network.check_coin_code", true)
	v.SetDefault("artifact", "build/contracts/CampaignManagement.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, xerrors.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, xerrors.Errorf("decode config %s: %w", path, err)
	}
	amounts, err := decodeAmounts(v.Get("deployment.amounts"))
	if err != nil {
		return nil, xerrors.Errorf("decode config %s: %w", path, err)
	}
	cfg.Deployment.Amounts = amounts
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file without overriding ones
// already set. A missing file is not an error unless required.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return xerrors.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return xerrors.Errorf("env file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings outside the derivation. Addresses, periods and
// amounts are checked by schedule.Builder and params.Assemble so every failure
// there carries a types sentinel.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	d := c.Deployment
	if _, err := d.Location(); err != nil {
		return err
	}
	if c.Network.Timeout < 0 {
		return fmt.Errorf("network.timeout %s is negative", c.Network.Timeout)
	}
	return nil
}

// ValidateBroadcast checks the settings only needed to send a transaction.
func (c *Config) ValidateBroadcast() error {
	if c.Network.RPCURL == "" {
		return errors.New("network.rpc_url missing")
	}
	if c.Network.ChainID <= 0 {
		return errors.New("network.chain_id missing")
	}
	if c.Network.PrivateKey == "" {
		return fmt.Errorf("network.private_key missing (set %s_NETWORK_PRIVATE_KEY)", EnvPrefix)
	}
	if c.Artifact == "" {
		return errors.New("artifact missing")
	}
	return nil
}

// Location resolves the reference timezone. The process-local zone is refused:
// the same config must give the same timestamps on every machine.
func (d Deployment) Location() (*time.Location, error) {
	name := strings.TrimSpace(d.Timezone)
	if name == "" {
		return nil, errors.New("deployment.timezone missing")
	}
	if strings.EqualFold(name, "Local") {
		return nil, errors.New("deployment.timezone must name a zone, not Local")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, xerrors.Errorf("deployment.timezone %q: %w", name, err)
	}
	return loc, nil
}
