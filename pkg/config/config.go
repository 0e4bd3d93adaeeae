package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "GAUGEWATCH"

// Config is the immutable runtime configuration. It is built once by Load and passed by value.
type Config struct {
	LCDEndpoints   []string      `mapstructure:"lcd_endpoints"`
	GaugesPath     string        `mapstructure:"gauges_path"`
	PoolsPath      string        `mapstructure:"pools_path"`
	PageLimit      int           `mapstructure:"page_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RPS            float64       `mapstructure:"rps"`

	AssetListURL string        `mapstructure:"asset_list_url"`
	RefDataTTL   time.Duration `mapstructure:"refdata_ttl"`

	DataDir              string `mapstructure:"data_dir"`
	NoPersist            bool   `mapstructure:"no_persist"`
	StrictSnapshots      bool   `mapstructure:"strict_snapshots"`
	ContinueOnFetchError bool   `mapstructure:"continue_on_fetch_error"`

	NativeDenom      string `mapstructure:"native_denom"`
	SuperfluidMarker string `mapstructure:"superfluid_marker"`

	TelegramAPI    string  `mapstructure:"telegram_api"`
	TelegramToken  string  `mapstructure:"telegram_token"`
	TelegramChatID string  `mapstructure:"telegram_chat_id"`
	TelegramRPS    float64 `mapstructure:"telegram_rps"`
	MessageMaxLen  int     `mapstructure:"message_max_len"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisStream   string `mapstructure:"redis_stream"`
	RedisMaxLen   int64  `mapstructure:"redis_stream_maxlen"`

	Schedule string `mapstructure:"schedule"`
	Addr     string `mapstructure:"addr"`
}

// SetDefaults registers every key with its default so environment overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("lcd_endpoints", []string{"https://lcd.osmosis.zone"})
	v.SetDefault("gauges_path", "/osmosis/incentives/v1beta1/gauges")
	v.SetDefault("pools_path", "/osmosis/poolmanager/v1beta1/all-pools")
	v.SetDefault("page_limit", 500)
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("rps", 10.0)

	v.SetDefault("asset_list_url", "https://raw.githubusercontent.com/osmosis-labs/assetlists/main/osmosis-1/osmosis-1.assetlist.json")
	v.SetDefault("refdata_ttl", "24h")

	v.SetDefault("data_dir", "./data")
	v.SetDefault("no_persist", false)
	v.SetDefault("strict_snapshots", false)
	v.SetDefault("continue_on_fetch_error", false)

	v.SetDefault("native_denom", "uosmo")
	v.SetDefault("superfluid_marker", "superbonding")

	v.SetDefault("telegram_api", "https://api.telegram.org")
	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("telegram_rps", 1.0)
	v.SetDefault("message_max_len", 4096)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_stream", "gaugewatch:events")
	v.SetDefault("redis_stream_maxlen", 10000)

	v.SetDefault("schedule", "0 */10 * * * *")
	v.SetDefault("addr", ":3000")
}

// Load reads defaults, an optional gaugewatch.yaml and GAUGEWATCH_* variables into a Config.
// Flags bound to v by the caller take precedence over all of them.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	// SetConfigName drops a file chosen with SetConfigFile, so search paths only apply without one.
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("gaugewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/gaugewatch/")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.LCDEndpoints = splitList(cfg.LCDEndpoints)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations a run cannot start with.
func (c Config) Validate() error {
	var errs []error
	if len(c.LCDEndpoints) == 0 {
		errs = append(errs, errors.New("at least one LCD endpoint is required"))
	}
	if c.DataDir == "" && !c.NoPersist {
		errs = append(errs, errors.New("data_dir is required unless no_persist is set"))
	}
	if c.PageLimit <= 0 {
		errs = append(errs, fmt.Errorf("page_limit must be positive, got %d", c.PageLimit))
	}
	if c.RefDataTTL <= 0 {
		errs = append(errs, fmt.Errorf("refdata_ttl must be positive, got %s", c.RefDataTTL))
	}
	if c.TelegramToken != "" && c.TelegramChatID == "" {
		errs = append(errs, errors.New("telegram_chat_id is required when telegram_token is set"))
	}
	if c.MessageMaxLen <= 0 {
		errs = append(errs, fmt.Errorf("message_max_len must be positive, got %d", c.MessageMaxLen))
	}
	return errors.Join(errs...)
}

// TelegramEnabled reports whether notifications go to Telegram rather than the log.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// RedisEnabled reports whether events are also published to a redis stream.
func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// splitList accepts both repeated values and a single comma separated value, as env vars give.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
