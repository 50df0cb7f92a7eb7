package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Mode        string `mapstructure:"mode"`
	SignalURL   string `mapstructure:"signal_url"`
	Room        string `mapstructure:"room"`
	DisplayName string `mapstructure:"display_name"`
	Owner       bool   `mapstructure:"owner"`
	StatusAddr  string `mapstructure:"status_addr"`
	RecordDir   string `mapstructure:"record_dir"`
	LogLevel    string `mapstructure:"log_level"`
	SendBuffer  int    `mapstructure:"send_buffer"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("signal_url", "ws://localhost:4000/ws")
	v.SetDefault("room", "")
	v.SetDefault("display_name", "guest")
	v.SetDefault("owner", false)
	v.SetDefault("status_addr", ":8080")
	v.SetDefault("record_dir", "./recordings")
	v.SetDefault("log_level", "info")
	v.SetDefault("send_buffer", 32)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
