package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/davidgonveg/trading-advisor-sub002/cmd/backtest"
	"github.com/davidgonveg/trading-advisor-sub002/cmd/ingest"
	"github.com/davidgonveg/trading-advisor-sub002/src/database"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Trading Advisor CMD"
	app.Usage = "The trading advisor command line interface"

	app.Commands = []cli.Command{
		backtestCMD,
		ingestCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	backtestCMD = cli.Command{
		Name:      "backtest",
		Usage:     "run a backtest from a config file",
		Action:    backtestAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config, c",
				Usage: "path to the run config yaml",
				Value: "run.yaml",
			},
		},
		Description: `Replay the configured symbols through the strategy and report results`,
	}
	ingestCMD = cli.Command{
		Name:        "ingest",
		Usage:       "fetch OHLCV candles into the database",
		Action:      ingestAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Fetch OHLCV candles from the exchange and upsert them`,
	}
)

func backtestAction(c *cli.Context) error {

	logrus.Info("Starting backtest CMD")

	runner := &backtest.Runner{
		Log:        logrus.WithField("cmd", "backtest"),
		ConfigPath: c.String("config"),
	}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Starting backtest cmd")
		return err
	}

	return nil
}

func ingestAction(_ *cli.Context) error {

	logrus.Info("Starting OHLCV ingest CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	_ingest := &ingest.OHLCVIngest{
		Log: logrus.WithField("cmd", "ingest"),
		DB:  database.MainDB,
	}

	if err := _ingest.Start(); err != nil {
		logrus.WithError(err).Error("Starting ingest cmd")
		return err
	}

	return nil
}
