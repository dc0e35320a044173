// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/rize/internal/models"
	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "email",
			Aliases: []string{"e"},
			Usage:   "Account email (prompted when omitted)",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password (prompted when omitted)",
		},
	}
}

// setupCommand handles setup operations for configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the notes and tasks stores and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the device session",
		Commands: []*cli.Command{
			{
				Name:   "signin",
				Usage:  "Sign in with email and password",
				Flags:  credentialFlags(),
				Action: r.AuthSignIn,
			},
			{
				Name:   "signup",
				Usage:  "Create an account and send a verification email",
				Flags:  credentialFlags(),
				Action: r.AuthSignUp,
			},
			{
				Name:   "google",
				Usage:  "Sign in with Google in the browser",
				Action: r.AuthGoogle,
			},
			{
				Name:   "verify",
				Usage:  "Check whether the signed-in email has been verified",
				Action: r.AuthVerify,
			},
			{
				Name:   "status",
				Usage:  "Reconcile and show the current session",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:  "reset",
				Usage: "Send a password reset email",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "Account email (prompted when omitted)",
					},
				},
				Action: r.AuthReset,
			},
			{
				Name:   "signout",
				Usage:  "Sign out and clear the cached session",
				Action: r.AuthSignOut,
			},
			{
				Name:   "profile",
				Usage:  "Show the signed-in identity",
				Flags:  outputFlags(),
				Action: r.AuthProfile,
			},
		},
	}
}

// notesCommand handles the notes list (newest first)
func notesCommand(r *Runner) *cli.Command {
	return listCommand(r, models.Note, "notes", "Notes, listed newest first")
}

// tasksCommand handles the tasks list (insertion order)
func tasksCommand(r *Runner) *cli.Command {
	return listCommand(r, models.Task, "tasks", "Tasks, listed in the order added")
}

func listCommand(r *Runner, kind models.CollectionKind, name, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Append an entry",
				ArgsUsage: "<text>",
				Action:    r.ListAdd(kind),
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "Print every entry",
				Flags:   outputFlags(),
				Action:  r.ListShow(kind),
			},
		},
	}
}

// exportCommand writes notes and tasks to files.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export notes and tasks to files",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "json",
				Usage:   "Export format: json, csv, markdown, txt",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Output directory (default: rize_export_<epoch>)",
			},
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Export only notes or tasks",
			},
		}, outputFlags()...),
		Action: r.Export,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.TUI,
	}
}
