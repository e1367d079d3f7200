package api

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/lepinkainen/seodash/pkg/urlutils"
)

// RecentProjectsLimit is how many projects the dashboard lists
const RecentProjectsLimit = 5

// PageStatuses counts projects by the HTTP status their page answered with
type PageStatuses struct {
	Success     int `json:"success" yaml:"success"`
	Redirect    int `json:"redirect" yaml:"redirect"`
	ClientError int `json:"client_error" yaml:"client_error"`
	ServerError int `json:"server_error" yaml:"server_error"`
	Unknown     int `json:"unknown" yaml:"unknown"`
}

// DashboardData holds the aggregates shown on the overview
type DashboardData struct {
	TotalProjects      int          `json:"total_projects" yaml:"total_projects"`
	AverageHealthScore float64      `json:"average_health_score" yaml:"average_health_score"`
	AverageLoadTimeMs  float64      `json:"average_load_time_ms" yaml:"average_load_time_ms"`
	TotalLinks         int          `json:"total_links" yaml:"total_links"`
	PageStatuses       PageStatuses `json:"page_statuses" yaml:"page_statuses"`
	RecentProjects     []Project    `json:"recent_projects" yaml:"recent_projects"`
	// Degraded is set when the figures are the zeroed fallback rather than real data
	Degraded bool   `json:"degraded" yaml:"degraded"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SiteStats aggregates the projects of one registrable domain
type SiteStats struct {
	Domain             string  `json:"domain" yaml:"domain"`
	Projects           int     `json:"projects" yaml:"projects"`
	AverageHealthScore float64 `json:"average_health_score" yaml:"average_health_score"`
	LastScrapedAt      string  `json:"last_scraped_at" yaml:"last_scraped_at"`
}

// GetDashboardData never fails. When the project list cannot be fetched the
// error is logged and a zeroed aggregate flagged Degraded is returned.
func (c *Client) GetDashboardData(ctx context.Context) *DashboardData {
	projects, err := c.GetProjects(ctx)
	if err != nil {
		slog.Error("Dashboard data unavailable, showing empty dashboard", "error", err)
		data := emptyDashboard()
		data.Degraded = true
		data.Error = err.Error()
		return data
	}

	return Aggregate(projects)
}

func emptyDashboard() *DashboardData {
	return &DashboardData{RecentProjects: []Project{}}
}

// Aggregate computes the dashboard figures from a project list
func Aggregate(projects []Project) *DashboardData {
	data := emptyDashboard()
	data.TotalProjects = len(projects)
	if len(projects) == 0 {
		return data
	}

	var healthSum, loadSum float64
	for _, p := range projects {
		healthSum += p.HealthScore
		loadSum += p.LoadTimeMs
		data.TotalLinks += len(p.Links)

		switch {
		case p.StatusCode >= 200 && p.StatusCode < 300:
			data.PageStatuses.Success++
		case p.StatusCode >= 300 && p.StatusCode < 400:
			data.PageStatuses.Redirect++
		case p.StatusCode >= 400 && p.StatusCode < 500:
			data.PageStatuses.ClientError++
		case p.StatusCode >= 500 && p.StatusCode < 600:
			data.PageStatuses.ServerError++
		default:
			data.PageStatuses.Unknown++
		}
	}

	n := float64(len(projects))
	data.AverageHealthScore = healthSum / n
	data.AverageLoadTimeMs = loadSum / n

	recent := append([]Project(nil), projects...)
	sortByScrapedAtDesc(recent)
	if len(recent) > RecentProjectsLimit {
		recent = recent[:RecentProjectsLimit]
	}
	data.RecentProjects = recent

	return data
}

// GetSiteStats groups the user's projects by registrable domain
func (c *Client) GetSiteStats(ctx context.Context) ([]SiteStats, error) {
	projects, err := c.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	return SiteStatsFor(projects), nil
}

// SiteStatsFor groups projects by registrable domain, busiest domain first
func SiteStatsFor(projects []Project) []SiteStats {
	type acc struct {
		stats     SiteStats
		healthSum float64
		last      time.Time
	}

	byDomain := make(map[string]*acc)
	for _, p := range projects {
		domain := urlutils.RegistrableDomain(p.URL)
		if domain == "" {
			domain = p.URL
		}

		a, ok := byDomain[domain]
		if !ok {
			a = &acc{stats: SiteStats{Domain: domain}}
			byDomain[domain] = a
		}
		a.stats.Projects++
		a.healthSum += p.HealthScore

		if t, ok := parseScrapedAt(p.ScrapedAt); ok && t.After(a.last) {
			a.last = t
			a.stats.LastScrapedAt = p.ScrapedAt
		}
	}

	out := make([]SiteStats, 0, len(byDomain))
	for _, a := range byDomain {
		a.stats.AverageHealthScore = a.healthSum / float64(a.stats.Projects)
		out = append(out, a.stats)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Projects != out[j].Projects {
			return out[i].Projects > out[j].Projects
		}
		return out[i].Domain < out[j].Domain
	})

	return out
}

// sortByScrapedAtDesc puts the newest first; unparseable timestamps go last
func sortByScrapedAtDesc(projects []Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		ti, okI := parseScrapedAt(projects[i].ScrapedAt)
		tj, okJ := parseScrapedAt(projects[j].ScrapedAt)
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
}

var scrapedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseScrapedAt(s string) (time.Time, bool) {
	for _, layout := range scrapedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
