package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/seodash/internal/auth"
	"github.com/lepinkainen/seodash/internal/dashboard"
	"github.com/lepinkainen/seodash/pkg/api"
	"github.com/lepinkainen/seodash/pkg/database"
	"github.com/lepinkainen/seodash/pkg/session"
)

func (a *app) login(ctx context.Context, email, password string) error {
	m, err := a.authManager(ctx)
	if err != nil {
		return err
	}

	if err := m.Login(ctx, email, password); err != nil {
		return a.localFailure(m, err)
	}

	if user := m.User(); user != nil {
		fmt.Fprintf(a.out, "Signed in as %s (%s)\n", user.Name, user.Role)
	}
	return nil
}

func (a *app) register(ctx context.Context, email, name, password string) error {
	if !a.cfg.Features.Registration {
		return featureDisabled("registration", "registration")
	}

	m, err := a.authManager(ctx)
	if err != nil {
		return err
	}

	if err := m.Register(ctx, auth.Registration{Email: email, Password: password, Name: name}); err != nil {
		return a.localFailure(m, err)
	}
	fmt.Fprintln(a.out, m.Message())
	return nil
}

func (a *app) confirm(ctx context.Context, email, code string) error {
	if !a.cfg.Features.Registration {
		return featureDisabled("registration", "registration")
	}

	m, err := a.authManager(ctx)
	if err != nil {
		return err
	}

	if err := m.ConfirmRegistration(ctx, email, code); err != nil {
		return a.localFailure(m, err)
	}
	fmt.Fprintln(a.out, m.Message())
	return nil
}

func (a *app) logout(ctx context.Context) error {
	m, err := a.authManager(ctx)
	if err != nil {
		// without provider settings only the local session can be dropped
		slog.Warn("Identity provider not configured, clearing local session only", "error", err)
		if err := a.session.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Local session cleared.")
		return nil
	}
	return m.Logout(ctx)
}

// statusReport is the output of `seodash status`
type statusReport struct {
	State      string         `json:"state" yaml:"state"`
	User       *session.User  `json:"user,omitempty" yaml:"user,omitempty"`
	Endpoint   string         `json:"endpoint" yaml:"endpoint"`
	Storage    string         `json:"storage" yaml:"storage"`
	ConfigFile string         `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	Database   *database.Info `json:"database,omitempty" yaml:"database,omitempty"`
	// Entries is the number of live entries in the sqlite session store
	Entries    *int64         `json:"stored_entries,omitempty" yaml:"stored_entries,omitempty"`
}

func (a *app) status(ctx context.Context, remote bool) error {
	report := statusReport{
		Endpoint:   a.cfg.API.Endpoint,
		Storage:    a.cfg.Storage.Driver,
		ConfigFile: a.cfg.File,
	}

	if remote {
		m, err := a.authManager(ctx)
		if err != nil {
			return err
		}
		state, err := m.CheckAuthStatus(ctx)
		if err != nil {
			return err
		}
		report.State = state.String()
		report.User = m.User()
	} else {
		report.State = auth.StateAnonymous.String()
		if a.session.Authenticated(ctx) {
			report.State = auth.StateAuthenticated.String()
			user, err := a.session.User(ctx)
			if err != nil {
				return err
			}
			report.User = user
		}
	}

	if a.db != nil {
		info, err := database.GetDatabaseInfo(ctx, a.db)
		if err != nil {
			slog.Warn("Failed to read session store info", "error", err)
		} else {
			report.Database = info
		}
	}

	if a.kv != nil {
		n, err := a.kv.Count(ctx)
		if err != nil {
			slog.Warn("Failed to count session store entries", "error", err)
		} else {
			report.Entries = &n
		}
	}

	return dashboard.Write(a.out, a.format, report, []string{"Field", "Value"}, statusRows(report))
}

func statusRows(r statusReport) [][]string {
	rows := [][]string{{"State", r.State}}
	if r.User != nil {
		rows = append(rows,
			[]string{"User", fmt.Sprintf("%s <%s>", r.User.Name, r.User.Email)},
			[]string{"Role", r.User.Role},
		)
	}
	rows = append(rows,
		[]string{"Endpoint", r.Endpoint},
		[]string{"Storage", r.Storage},
	)
	if r.ConfigFile != "" {
		rows = append(rows, []string{"Config file", r.ConfigFile})
	}
	if r.Database != nil {
		rows = append(rows,
			[]string{"Store path", r.Database.Path},
			[]string{"SQLite", r.Database.SQLiteVersion},
			[]string{"Store size", fmt.Sprintf("%d bytes", r.Database.FileSizeBytes)},
		)
	}
	if r.Entries != nil {
		rows = append(rows, []string{"Stored entries", fmt.Sprintf("%d", *r.Entries)})
	}
	return rows
}

func (a *app) scrape(ctx context.Context, rawURL string) error {
	res, err := a.client.CreateProject(ctx, rawURL)
	if err != nil {
		return err
	}
	return dashboard.WriteProject(a.out, a.format, &res.Data)
}

func (a *app) projects(ctx context.Context) error {
	projects, err := a.client.GetProjects(ctx)
	if err != nil {
		return err
	}
	return dashboard.WriteProjects(a.out, a.format, projects)
}

func (a *app) showProject(ctx context.Context, id string) error {
	p, err := a.client.GetProject(ctx, id)
	if err != nil {
		return err
	}
	return dashboard.WriteProject(a.out, a.format, p)
}

func (a *app) updateProject(ctx context.Context, id, title string) error {
	return a.client.UpdateProject(ctx, id, api.ProjectUpdate{Title: title})
}

func (a *app) deleteProject(ctx context.Context, id string) error {
	return a.client.DeleteProject(ctx, id)
}

func (a *app) files(ctx context.Context, projectID string) error {
	files, err := a.client.ListFiles(ctx, projectID)
	if err != nil {
		return err
	}
	return dashboard.WriteFiles(a.out, a.format, files)
}

func (a *app) sites(ctx context.Context) error {
	if !a.cfg.Features.SiteStats {
		return featureDisabled("site statistics", "site_stats")
	}

	sites, err := a.client.GetSiteStats(ctx)
	if err != nil {
		return err
	}
	return dashboard.WriteSites(a.out, a.format, sites)
}

func (a *app) openDashboard(ctx context.Context, plain bool) error {
	if !a.cfg.Features.Dashboard {
		return featureDisabled("dashboard", "dashboard")
	}

	if plain || a.format != dashboard.FormatTable {
		return dashboard.WriteDashboard(a.out, a.format, a.client.GetDashboardData(ctx))
	}

	a.nav.Hold()
	defer a.nav.Release()

	return dashboard.Run(ctx, a.client, dashboard.Options{
		SiteStats:    a.cfg.Features.SiteStats,
		ClearSession: a.session.Clear,
	})
}
