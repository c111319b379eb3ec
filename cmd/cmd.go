// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand creates the starter config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter config.toml",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Run the installed-app OAuth consent flow in a browser",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "Seconds to wait for browser consent",
						Value: 300,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show stored credential state",
				Action: r.AuthStatus,
			},
		},
	}
}

// libraryCommand handles read-only YouTube Music library operations
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "YouTube Music library operations",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List playlists in your library",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.LibraryPlaylists,
			},
			{
				Name:  "items",
				Usage: "List the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist-id"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of items to return",
						Value: 200,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.StringFlag{
						Name:    "csv",
						Aliases: []string{"o"},
						Usage:   "Write tracks to a CSV file at the given path",
					},
				},
				Action: r.LibraryItems,
			},
			{
				Name:  "videos",
				Usage: "Resolve full metadata for video ids",
				Arguments: []cli.Argument{
					&cli.StringArgs{Name: "video-id", Min: 1, Max: -1},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.LibraryVideos,
			},
		},
	}
}

// searchCommand handles free-text music search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search YouTube for music videos",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max",
				Usage: "Maximum results to return",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.SearchMusic,
	}
}

// analyzeCommand builds a taste profile from a playlist
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze a playlist into a taste profile",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist-id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.AnalyzePlaylist,
	}
}

// quotaCommand reports daily quota consumption
func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "Quota ledger operations",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show today's quota consumption",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.QuotaStatus,
			},
		},
	}
}

// cacheCommand manages the response cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Response cache operations",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Remove expired cache entries",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Remove every entry, not just expired ones",
					},
				},
				Action: r.CachePurge,
			},
		},
	}
}
