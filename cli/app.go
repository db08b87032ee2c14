// Package cli contains the ulogcat command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	generalFlagConfig  = "config"
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	flagOut    = "out"
	flagAllow  = "allow"
	flagHeader = "header"
	flagRaw    = "raw"
)

func outFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     flagOut,
		Aliases:  []string{"o"},
		Required: required,
		Usage:    "write the result to `FILE`; names ending in .zst or .gz are compressed",
	}
}

// NewApp returns a new app with the ulogcat commands, Writer set to out, and ErrWriter set to
// errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "ulogcat",
		Usage:           "inspect and rewrite ULog flight logs",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    generalFlagConfig,
				Aliases: []string{"c"},
				Usage:   "load parser configuration from JSON `FILE`",
			},
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  generalFlagLogFile,
				Usage: "also write logs to `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "cat",
				Usage:     "print every message of a log",
				ArgsUsage: "<log>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagHeader,
						Usage: "print the file header first",
					},
					&cli.BoolFlag{
						Name:  flagRaw,
						Usage: "print timestamp and padding fields too",
					},
				},
				Action: CatAction,
			},
			{
				Name:      "subscriptions",
				Aliases:   []string{"subs"},
				Usage:     "list the subscriptions of a log",
				ArgsUsage: "<log>",
				Action:    SubscriptionsAction,
			},
			{
				Name:      "multi-id",
				Usage:     "list messages logged under more than one instance",
				ArgsUsage: "<log>",
				Action:    MultiIDAction,
			},
			{
				Name:      "info",
				Usage:     "list info messages and parameters",
				ArgsUsage: "<log>",
				Action:    InfoAction,
			},
			{
				Name:      "roundtrip",
				Usage:     "decode and re-encode a log, checking that the bytes are unchanged",
				ArgsUsage: "<log>",
				Flags:     []cli.Flag{outFlag(false)},
				Action:    RoundTripAction,
			},
			{
				Name:      "filter",
				Usage:     "write a copy of a log holding only some messages",
				ArgsUsage: "<log>",
				Flags: []cli.Flag{
					outFlag(true),
					&cli.StringSliceFlag{
						Name:     flagAllow,
						Aliases:  []string{"a"},
						Required: true,
						Usage:    "message names to keep",
					},
				},
				Action: FilterAction,
			},
		},
	}
}
