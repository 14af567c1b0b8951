// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// version is the hitqr release.
const version = "0.3.0"

// command returns the root command with the global flags and every subcommand.
func (r *Runner) command() *cli.Command {
	return &cli.Command{
		Name:    "hitqr",
		Usage:   "Play Hitster cards on Spotify by scanning their QR codes",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Snippet start mode: beginning, custom or random",
			},
			&cli.IntFlag{
				Name:  "start",
				Usage: "Start offset in seconds for custom mode (0-120)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// setupCommand initializes the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the database",
		Action: r.Setup,
	}
}

// loginCommand runs the Spotify login.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to Spotify in the browser",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the login URL instead of opening a browser",
			},
		},
		Action: r.Login,
	}
}

// logoutCommand removes the stored login.
func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored Spotify login",
		Action: r.Logout,
	}
}

// statusCommand reports login, device and player state.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show login, device and playback status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// devicesCommand lists and selects playback devices.
func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List Spotify Connect devices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "select",
				Usage: "Transfer playback to the device with this ID",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Devices,
	}
}

// playlistsCommand lists the user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your Spotify playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Playlists,
	}
}

// resolveCommand looks a card up without playing it.
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Look up the catalog entry of a card link",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Resolve,
	}
}

// playCommand plays one card.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play the snippet of a card link",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-wait",
				Usage: "Return once playback starts instead of waiting for the snippet to end",
			},
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "Print the song after the snippet",
			},
		},
		Action: r.Play,
	}
}

// randomCommand plays a random track from a playlist.
func randomCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "random",
		Usage: "Play a snippet of a random track from a playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Playlist ID",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "no-wait",
				Usage: "Return once playback starts instead of waiting for the snippet to end",
			},
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "Print the song after the snippet",
				Value: true,
			},
		},
		Action: r.Random,
	}
}

// scanCommand plays every scanned card.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Play cards as they are scanned, one link per line on stdin or over a websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Accept scans from websocket clients on this address instead of stdin",
			},
		},
		Action: r.Scan,
	}
}

// historyCommand shows and exports the play history.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently played snippets",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of plays to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Delete the play history",
			},
		},
		Action: r.History,
	}
}

// catalogCommand handles deck catalog operations.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Deck catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "List the cards of a deck",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "deck"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CatalogShow,
			},
			{
				Name:  "enrich",
				Usage: "Fill missing track links of a catalog CSV by searching Spotify",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "in",
						Usage:    "Catalog CSV to read",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Catalog CSV to write (default: overwrite --in)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent searches",
						Value: 3,
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Search rows that already have a track link",
					},
					&cli.BoolFlag{
						Name:  "fill-year",
						Usage: "Fill empty years from the album release date",
					},
				},
				Action: r.CatalogEnrich,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the game screen.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"game", "ui"},
		Usage:   "Launch the interactive game screen",
		Action:  r.TUI,
	}
}
