// Package main provides the CLI entry point for seodash.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/lepinkainen/seodash/internal/config"
	"github.com/lepinkainen/seodash/internal/dashboard"
	"github.com/lepinkainen/seodash/pkg/filesystem"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path" type:"path"`
	Debug  bool   `help:"Enable debug logging" default:"false"`
	Output string `help:"Output format: table, json or yaml" short:"o" default:"table" enum:"table,json,yaml"`

	Login struct {
		Email    string `arg:"" help:"Account email"`
		Password string `help:"Account password" env:"SEODASH_PASSWORD"`
	} `cmd:"" help:"Sign in."`

	Register struct {
		Email    string `arg:"" help:"Account email"`
		Name     string `help:"Display name" required:""`
		Password string `help:"Account password" env:"SEODASH_PASSWORD"`
	} `cmd:"" help:"Create an account."`

	Confirm struct {
		Email string `arg:"" help:"Account email"`
		Code  string `arg:"" help:"Confirmation code from the email"`
	} `cmd:"" help:"Confirm a new account."`

	Logout struct{} `cmd:"" help:"Sign out and clear the stored session."`

	Status struct {
		Remote bool `help:"Re-check the session with the identity provider"`
	} `cmd:"" help:"Show the signed-in user and local state."`

	Scrape struct {
		URL string `arg:"" name:"url" help:"Page to scrape"`
	} `cmd:"" help:"Scrape a page and save it as a project."`

	Projects struct{} `cmd:"" help:"List projects."`

	Project struct {
		Show struct {
			ID string `arg:"" help:"Project ID"`
		} `cmd:"" help:"Show a project."`

		Update struct {
			ID    string `arg:"" help:"Project ID"`
			Title string `help:"New title"`
		} `cmd:"" help:"Update a project."`

		Delete struct {
			ID string `arg:"" help:"Project ID"`
		} `cmd:"" help:"Delete a project."`
	} `cmd:"" help:"Manage a single project."`

	Files struct {
		ProjectID string `arg:"" name:"project-id" help:"Project ID"`
	} `cmd:"" help:"List the files of a project."`

	Sites struct{} `cmd:"" help:"Show statistics per tracked site."`

	Dashboard struct {
		Plain bool `help:"Print the overview instead of starting the interactive dashboard"`
	} `cmd:"" help:"Open the dashboard."`
}

func main() {
	configPaths := []string{config.DefaultConfigFile}
	if dataPath, err := filesystem.DefaultDataPath(config.DefaultConfigFile); err == nil {
		configPaths = append(configPaths, dataPath)
	}

	// Parse CLI with Kong YAML configuration file loading
	kctx := kong.Parse(&CLI,
		kong.Name("seodash"),
		kong.Description("Terminal client for the SEO scraping dashboard."),
		kong.Configuration(kongyaml.Loader, configPaths...),
	)

	// Configure logging level based on debug flag
	if CLI.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, kctx.Command())
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code
func run(ctx context.Context, command string) int {
	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	format, err := dashboard.ParseFormat(CLI.Output)
	if err != nil {
		slog.Error("Invalid output format", "error", err)
		return 1
	}

	a, err := newApp(ctx, cfg, format, os.Stdout)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	if err := a.dispatch(ctx, command); err != nil {
		// an interrupt cancels ctx, the session purge must still run
		a.report(context.WithoutCancel(ctx), os.Stderr, err)
		return 1
	}
	return 0
}

// dispatch runs the parsed command
func (a *app) dispatch(ctx context.Context, command string) error {
	slog.Debug("Running command", "command", command)

	switch command {
	case "login <email>":
		return a.login(ctx, CLI.Login.Email, CLI.Login.Password)

	case "register <email>":
		return a.register(ctx, CLI.Register.Email, CLI.Register.Name, CLI.Register.Password)

	case "confirm <email> <code>":
		return a.confirm(ctx, CLI.Confirm.Email, CLI.Confirm.Code)

	case "logout":
		return a.logout(ctx)

	case "status":
		return a.status(ctx, CLI.Status.Remote)

	case "scrape <url>":
		return a.scrape(ctx, CLI.Scrape.URL)

	case "projects":
		return a.projects(ctx)

	case "project show <id>":
		return a.showProject(ctx, CLI.Project.Show.ID)

	case "project update <id>":
		return a.updateProject(ctx, CLI.Project.Update.ID, CLI.Project.Update.Title)

	case "project delete <id>":
		return a.deleteProject(ctx, CLI.Project.Delete.ID)

	case "files <project-id>":
		return a.files(ctx, CLI.Files.ProjectID)

	case "sites":
		return a.sites(ctx)

	case "dashboard":
		return a.openDashboard(ctx, CLI.Dashboard.Plain)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
