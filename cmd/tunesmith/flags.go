package main

import (
	"github.com/urfave/cli/v3"
)

var (
	checkpointPath string
	corpusPath     string
	configFile     string
	logLevel       string
	logFormat      string
	debug          bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "checkpoint",
			Aliases:     []string{"model", "m"},
			Usage:       "path to a .safetensors checkpoint (or $" + envCheckpoint + ")",
			Destination: &checkpointPath,
		},
		&cli.StringFlag{
			Name:        "corpus",
			Usage:       "training corpus to rebuild the vocabulary from (or $" + envCorpus + ")",
			Destination: &corpusPath,
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
