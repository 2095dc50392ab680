package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogLevel string `envconfig:"E2E_LOG_LEVEL" default:"WARN"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_FLUSH_DELAY_MS shortens the batch flush delay so scenarios stay fast
	FlushDelayMS int `envconfig:"E2E_FLUSH_DELAY_MS" default:"40"`
	// E2E_DUMP_STATUS renders the memory snapshot at the end of each scenario
	DumpStatus bool `envconfig:"E2E_DUMP_STATUS" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
