package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/de-tools/counter-atlas/pkg/store/source"
)

const EnvPrefix = "COUNTER"

type Settings struct {
	LogLevel string         `mapstructure:"log_level"`
	Output   string         `mapstructure:"output"`
	Server   ServerSettings `mapstructure:"server"`
	S3       S3Settings     `mapstructure:"s3"`
	Sushi    SushiSettings  `mapstructure:"sushi"`
}

type ServerSettings struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

type S3Settings struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type SushiSettings struct {
	Profiles   string        `mapstructure:"profiles"`
	Attempts   int           `mapstructure:"attempts"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "tsv")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("sushi.profiles", DefaultProfilesPath())
	v.SetDefault("sushi.attempts", 3)
	v.SetDefault("sushi.retry_delay", 30*time.Second)
	v.SetDefault("sushi.timeout", 2*time.Minute)
}

// LoadSettings reads the YAML file at path, when given, on top of the
// defaults. COUNTER_* environment variables override both, e.g.
// COUNTER_SUSHI_ATTEMPTS=5.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if settings.Sushi.Attempts < 1 {
		return nil, fmt.Errorf("sushi.attempts must be at least 1, got %d", settings.Sushi.Attempts)
	}
	return &settings, nil
}

func (s S3Settings) SourceConfig() source.S3Config {
	return source.S3Config{
		Profile:         s.Profile,
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	}
}
