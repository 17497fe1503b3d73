package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"9898"`
	// APITokenBcrypt is the bcrypt hash of the bearer token required on the
	// results API. Empty disables authentication (local use).
	APITokenBcrypt string `envconfig:"API_TOKEN_BCRYPT" default:""`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
