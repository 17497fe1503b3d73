package connectors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BinanceBaseURL string `envconfig:"BINANCE_BASE_URL" default:"https://api.binance.com"`

	ClickHouseAddr     string `envconfig:"CLICKHOUSE_ADDR" default:"localhost:9000"`
	ClickHouseDatabase string `envconfig:"CLICKHOUSE_DATABASE" default:"market"`
	ClickHouseUser     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	ClickHousePassword string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	ClickHouseTable    string `envconfig:"CLICKHOUSE_TABLE" default:"ohlcv_1m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
