package connectors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AlphaVantageAPIKey  string `envconfig:"ALPHA_VANTAGE_API_KEY" default:""`
	AlphaVantageBaseURL string `envconfig:"ALPHA_VANTAGE_BASE_URL" default:"https://www.alphavantage.co"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
