package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		WSEndpoint string `mapstructure:"ws_endpoint"`
		APIBase    string `mapstructure:"api_base"`
	} `mapstructure:"server"`

	Auth struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"auth"`

	Game struct {
		PingInterval time.Duration `mapstructure:"ping_interval"`
		// Bar height for options nobody picked; display heuristic.
		TallyFloorPercent float64 `mapstructure:"tally_floor_percent"`
	} `mapstructure:"game"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Server.WSEndpoint = "ws://localhost:3001/ws"
	cfg.Server.APIBase = "http://localhost:3001"
	cfg.Game.PingInterval = 15 * time.Second
	cfg.Game.TallyFloorPercent = 10
	return cfg
}

// Load merges the defaults already in cfg with the file (optional) and the
// environment (SERVER_WS_ENDPOINT, AUTH_TOKEN, ...), cfg must be a pointer.
func Load(file string, cfg any) error {
	v := viper.New()
	m := make(map[string]any)

	if err := mapstructure.Decode(cfg, &m); err != nil {
		return fmt.Errorf("mapstructure: %v", err)
	}

	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("merge config map: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config from file %s: %v", file, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	return nil
}
