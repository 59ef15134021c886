package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fsguard/internal/version"
)

func newApp() *cli.App {
	return &cli.App{
		Name:                   "fsguard",
		Usage:                  "Sandboxed file discovery, search and line editing for AI agents",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Directory holding .fsguard.kdl/.fsguard.toml and .env (default: working directory)",
			},
			&cli.StringFlag{
				Name:    "allowed-paths",
				Aliases: []string{"a"},
				Usage:   "Allowed directories as 'path|name;path2' (overrides config and ALLOWED_PATHS)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Skip paths matching doublestar patterns while indexing (e.g., --exclude '**/node_modules')",
			},
			&cli.StringFlag{
				Name:  "cache-driver",
				Usage: "Index cache driver: memory, disk or sqlite",
			},
			&cli.StringFlag{
				Name:  "cache-path",
				Usage: "Directory (disk) or database file (sqlite) for the index cache",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "follow-symlinks",
				Usage: "Descend into symlinked directories while indexing",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the file tools over MCP on stdio",
				Action: mcpCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address (enables metrics)",
					},
				},
			},
			{
				Name:      "find",
				Usage:     "Find files by name under a directory",
				ArgsUsage: "<query>",
				Action:    findCommand,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.StringFlag{
						Name:    "ext",
						Aliases: []string{"e"},
						Usage:   "Only files with this extension",
					},
					jsonFlag(),
				},
			},
			{
				Name:      "grep",
				Usage:     "Search file contents for literal text",
				ArgsUsage: "<text>",
				Action:    grepCommand,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.StringFlag{
						Name:  "pattern",
						Usage: "Only files whose relative path matches this filename pattern",
					},
					&cli.StringFlag{
						Name:    "ext",
						Aliases: []string{"e"},
						Usage:   "Only files with this extension",
					},
					&cli.BoolFlag{
						Name:    "case-sensitive",
						Aliases: []string{"s"},
						Usage:   "Match case exactly",
					},
					&cli.IntFlag{
						Name:    "context",
						Aliases: []string{"C"},
						Usage:   "Lines of context around each match",
						Value:   -1,
					},
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"m"},
						Usage:   "Stop after this many matching files",
					},
					jsonFlag(),
				},
			},
			{
				Name:      "read",
				Usage:     "Print a file with line numbers and its quick hash",
				ArgsUsage: "<path>",
				Action:    readCommand,
				Flags:     []cli.Flag{jsonFlag()},
			},
			{
				Name:   "dirs",
				Usage:  "List the allowed directories",
				Action: dirsCommand,
				Flags:  []cli.Flag{jsonFlag()},
			},
			{
				Name:  "config",
				Usage: "Inspect the effective configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the effective configuration as TOML",
						Action: configShowCommand,
					},
					{
						Name:   "validate",
						Usage:  "Check the effective configuration",
						Action: configValidateCommand,
					},
				},
			},
		},
	}
}

func dirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Base directory (default: working directory)",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the raw JSON result",
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
