// Command beacon-core is the process entrypoint wiring config flags to the
// state-transition, fork-choice, block-import, range-sync, operation-pool,
// data-availability, and shuffling-cache subsystems. Grounded on the
// teacher's root cmd/beacon-chain urfave/cli app-construction pattern.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/blockchain"
	"github.com/prysmaticlabs/beacon-core/beacon-chain/execution"
	"github.com/prysmaticlabs/beacon-core/config/params"
)

var log = logrus.WithField("prefix", "main")

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory for beacon chain databases",
		Value: "beacon-core-data",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log verbosity (trace, debug, info, warn, error)",
		Value: "info",
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "beacon chain network configuration to apply",
		Value: "mainnet",
	}
	terminalTotalDifficultyFlag = &cli.StringFlag{
		Name:  "terminal-total-difficulty",
		Usage: "override TERMINAL_TOTAL_DIFFICULTY, as a 0x-prefixed hex string",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "beacon-core"
	app.Usage = "a beacon chain consensus client core"
	app.Flags = []cli.Flag{dataDirFlag, verbosityFlag, networkFlag, terminalTotalDifficultyFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("startup failure")
	}
}

func run(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String(verbosityFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid verbosity: %w", err)
	}
	logrus.SetLevel(level)

	if network := c.String(networkFlag.Name); network != "mainnet" {
		return fmt.Errorf("unknown network %q", network)
	}
	_ = params.BeaconConfig() // validates process-wide config is initialized

	if ttd := c.String(terminalTotalDifficultyFlag.Name); ttd != "" {
		if _, err := execution.ParseTerminalTotalDifficulty(ttd); err != nil {
			return fmt.Errorf("invalid terminal total difficulty: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := blockchain.New(ctx, &blockchain.Config{})
	if err != nil {
		return fmt.Errorf("constructing blockchain service: %w", err)
	}
	defer svc.Stop()

	log.Info("beacon-core started")
	<-ctx.Done()
	return nil
}
