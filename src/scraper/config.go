package scraper

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	OpenInsiderBaseURL string `envconfig:"OPENINSIDER_BASE_URL" default:"https://openinsider.com"`
	UserAgent          string `envconfig:"SCRAPER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
