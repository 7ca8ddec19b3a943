// Command setlist-to-playlist turns setlist.fm setlists into Spotify playlists.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:    "setlist-to-playlist",
		Usage:   "Turn setlist.fm setlists into Spotify playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("SETLIST_TO_PLAYLIST_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			setlistCommand(),
			initConfigCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overriding the configuration",
			},
		},
		Action: runServe,
	}
}

func setlistCommand() *cli.Command {
	return &cli.Command{
		Name:      "setlist",
		Usage:     "Resolve a setlist.fm URL and preview the playlist it would create",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the raw setlist as JSON",
			},
		},
		Action: runSetlist,
	}
}

func initConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "init-config",
		Usage:  "Write an example configuration file",
		Action: runInitConfig,
	}
}
