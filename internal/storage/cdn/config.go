package cdn

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Domain          string `mapstructure:"Domain"`
	KeyPairID       string `mapstructure:"KeyPairID"`
	PrivateKeyPEM   string `mapstructure:"PrivateKeyPEM"`
	DistributionID  string `mapstructure:"DistributionID"`
	KVSARN          string `mapstructure:"KVSARN"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Region          string `mapstructure:"Region"`
}

func NewConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.Domain == "" {
		return nil, fmt.Errorf("Domain is required")
	}
	if cfg.KeyPairID == "" {
		return nil, fmt.Errorf("KeyPairID is required")
	}
	if cfg.PrivateKeyPEM == "" {
		return nil, fmt.Errorf("PrivateKeyPEM is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	return &cfg, nil
}
