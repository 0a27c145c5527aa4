// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the saved-card database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "List migrations and whether they have been applied",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration",
			},
		},
		Action: r.SetupDatabase,
	}
}

// serveCommand runs the web application
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.StringFlag{
				Name:    "public-url",
				Usage:   "External base URL used for logout redirects",
				Sources: cli.EnvVars("TCGX_PUBLIC_URL"),
			},
			&cli.BoolFlag{
				Name:  "secure-cookies",
				Usage: "Only send the session cookie over HTTPS",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the home page in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// authCommand signs the CLI in and out
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign the CLI in with the identity provider",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through the browser and remember the identity",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Local callback port (must be an allowed callback URL)",
						Value: 8765,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in identity",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the signed-in identity",
				Action: r.AuthLogout,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the card catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Card name"},
			&cli.StringFlag{Name: "set", Aliases: []string{"s"}, Usage: "Set name"},
			&cli.StringFlag{Name: "rarity", Aliases: []string{"r"}, Usage: "Rarity"},
			&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Artist"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
		},
		Action: r.Search,
	}
}

func investCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "invest",
		Usage: "Ask for an investment outlook on one card",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "set", Aliases: []string{"s"}, Usage: "Set name", Required: true},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Card name", Required: true},
			&cli.StringFlag{Name: "rarity", Aliases: []string{"r"}, Usage: "Rarity", Required: true},
			&cli.BoolFlag{Name: "raw", Usage: "Print the markdown without rendering"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
		},
		Action: r.Invest,
	}
}

// savedCommand manages the signed-in user's saved list
func savedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "saved",
		Aliases: []string{"list"},
		Usage:   "Manage your saved cards",
		Commands: []*cli.Command{
			{
				Name:    "show",
				Aliases: []string{"ls"},
				Usage:   "List saved cards",
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{Name: "prices", Usage: "Fetch current market prices"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.SavedList,
			},
			{
				Name:  "add",
				Usage: "Save a card by catalog id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "card-id"},
				},
				Flags:  []cli.Flag{userFlag()},
				Action: r.SavedAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove a card by catalog id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "card-id"},
				},
				Flags:  []cli.Flag{userFlag()},
				Action: r.SavedRemove,
			},
			{
				Name:  "export",
				Usage: "Export the saved list with current prices",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (or directory for markdown)",
					},
					&cli.BoolFlag{
						Name:  "images",
						Usage: "Download card images alongside a markdown export",
					},
				},
				Action: r.SavedExport,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing the saved list.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse saved cards interactively",
		Flags:   []cli.Flag{userFlag()},
		Action:  r.TUI,
	}
}

func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "User id (defaults to the signed-in identity)",
		Sources: cli.EnvVars("TCGX_USER"),
	}
}
