// Package config loads the indexer's configuration the way the teacher's
// pkg/config loads a node's: viper for layered file+env config, godotenv
// for local .env files (§6 "Configuration").
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Postgres holds the connection parameters named in §6 ("Database connection
// parameters") and mirrors the original adapter's PostgresEnv field names.
type Postgres struct {
	Host     string `mapstructure:"pg_host"`
	Port     string `mapstructure:"pg_port"`
	User     string `mapstructure:"pg_user"`
	Password string `mapstructure:"pg_password"`
	DB       string `mapstructure:"pg_db"`
	Schema   string `mapstructure:"pg_schema"`
	MinConns int32  `mapstructure:"pg_pool_min_conns"`
	MaxConns int32  `mapstructure:"pg_pool_max_conns"`
}

// ConnString builds the libpq-style DSN pgxpool.New expects.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", p.User, p.Password, p.Host, p.Port, p.DB)
}

// Reconciliation configures the SharePriceChanged tolerance (§9 Open
// Question 3, SPEC_FULL.md §D.3).
type Reconciliation struct {
	ToleranceBps int `mapstructure:"share_price_tolerance_bps"`
}

// Config is the unified configuration for one consumer process (§6).
type Config struct {
	ConsumerType             string        `mapstructure:"consumer_type"`
	IndexingSource           string        `mapstructure:"indexing_source"`
	IntuitionContractAddress string        `mapstructure:"intuition_contract_address"`
	ENSRegistryAddress       string        `mapstructure:"ens_registry_address"`
	RawQueueURL              string        `mapstructure:"raw_consumer_queue_url"`
	DecodedQueueURL          string        `mapstructure:"decoded_logs_queue_url"`
	ResolverQueueURL         string        `mapstructure:"resolver_queue_url"`
	ImageUploadQueueURL      string        `mapstructure:"image_upload_queue_url"`
	IPFSGatewayURL           string        `mapstructure:"ipfs_gateway_url"`
	RPCURLMainnet            string        `mapstructure:"rpc_url_mainnet"`
	RPCURLSidechain          string        `mapstructure:"rpc_url_base_mainnet"`
	LocalstackURL            string        `mapstructure:"localstack_url"`
	ImageGuardURL            string        `mapstructure:"image_guard_url"`
	AdminHTTPPort            string        `mapstructure:"admin_http_port"`
	PollPause                time.Duration `mapstructure:"poll_pause"`

	Postgres       Postgres       `mapstructure:",squash"`
	Reconciliation Reconciliation `mapstructure:",squash"`
}

const defaultPollPause = 300 * time.Millisecond

func setDefaults(v *viper.Viper) {
	v.SetDefault("poll_pause", defaultPollPause)
	v.SetDefault("share_price_tolerance_bps", 5)
	v.SetDefault("consumer_type", "sqs")
	v.SetDefault("pg_pool_min_conns", 5)
	v.SetDefault("pg_pool_max_conns", 20)
	v.SetDefault("pg_schema", "public")
	v.SetDefault("admin_http_port", "8090")
}

// envKeys are bound explicitly because viper's AutomaticEnv only affects
// Get, not Unmarshal — every key the Config struct expects must be known
// to viper before Unmarshal runs.
var envKeys = []string{
	"consumer_type", "indexing_source", "intuition_contract_address",
	"ens_registry_address", "raw_consumer_queue_url", "decoded_logs_queue_url",
	"resolver_queue_url", "image_upload_queue_url", "ipfs_gateway_url",
	"rpc_url_mainnet", "rpc_url_base_mainnet", "localstack_url", "image_guard_url",
	"admin_http_port", "poll_pause", "pg_host", "pg_port", "pg_user", "pg_password", "pg_db", "pg_schema",
	"pg_pool_min_conns", "pg_pool_max_conns", "share_price_tolerance_bps",
}

func bindEnv(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}

// Load reads configuration from environment variables (layered over an
// optional .env file, per the teacher's cmd/cli middleware pattern) and
// returns the parsed Config (§6).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	missing := func(name, val string) string {
		if val == "" {
			return name + " "
		}
		return ""
	}
	problems := missing("intuition_contract_address", c.IntuitionContractAddress) +
		missing("raw_consumer_queue_url", c.RawQueueURL) +
		missing("pg_host", c.Postgres.Host) +
		missing("pg_db", c.Postgres.DB)
	if problems != "" {
		return fmt.Errorf("missing required configuration: %s", problems)
	}
	return nil
}
