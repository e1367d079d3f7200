package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/seodash/pkg/api"
)

// Format selects how command output is written
type Format string

// Supported output formats
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an --output value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Write encodes v as JSON or YAML, or renders the given rows as a table
func Write(w io.Writer, format Format, v any, headers []string, rows [][]string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, renderTable(headers, rows))
		return err
	}
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	return t.String()
}

// WriteProjects writes the project list
func WriteProjects(w io.Writer, format Format, projects []api.Project) error {
	if projects == nil {
		projects = []api.Project{}
	}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, projectRow(p))
	}
	return Write(w, format, projects, []string{"ID", "Title", "URL", "Status", "Health", "Load", "Scraped"}, rows)
}

func projectRow(p api.Project) []string {
	return []string{
		p.ID,
		truncate(orDash(p.Title), 40),
		truncate(p.URL, 50),
		statusText(p.StatusCode),
		formatScore(p.HealthScore),
		formatMillis(p.LoadTimeMs),
		formatScrapedAt(p.ScrapedAt),
	}
}

// WriteProject writes a single project with its meta tags and links
func WriteProject(w io.Writer, format Format, p *api.Project) error {
	if format != FormatTable {
		return Write(w, format, p, nil, nil)
	}
	_, err := io.WriteString(w, FormatProjectDetail(p))
	return err
}

// FormatProjectDetail renders a project for the terminal
func FormatProjectDetail(p *api.Project) string {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "Title: %s\n", orDash(p.Title))
	fmt.Fprintf(&b, "URL: %s\n", p.URL)
	fmt.Fprintf(&b, "ID: %s\n", p.ID)
	fmt.Fprintf(&b, "Status: %s | Health: %s | Load time: %s\n",
		statusText(p.StatusCode), formatScore(p.HealthScore), formatMillis(p.LoadTimeMs))
	fmt.Fprintf(&b, "Scraped: %s\n", formatScrapedAt(p.ScrapedAt))

	if p.MetaDescription != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", wrapText(p.MetaDescription, 70))
	}

	if len(p.MetaTags) > 0 {
		b.WriteString("\nMeta tags:\n")
		for _, tag := range p.MetaTags {
			name := tag.Name
			if name == "" {
				name = tag.Property
			}
			fmt.Fprintf(&b, "  %s: %s\n", orDash(name), truncate(tag.Content, 60))
		}
	}

	if len(p.Links) > 0 {
		fmt.Fprintf(&b, "\nLinks (%d):\n", len(p.Links))
		const maxLinks = 20
		for i, link := range p.Links {
			if i == maxLinks {
				fmt.Fprintf(&b, "  ... and %d more\n", len(p.Links)-maxLinks)
				break
			}
			fmt.Fprintf(&b, "  %s\n", link)
		}
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")
	return b.String()
}

// WriteFiles writes the files of a project
func WriteFiles(w io.Writer, format Format, files []api.File) error {
	if files == nil {
		files = []api.File{}
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{f.Name, formatBytes(f.Size), orDash(f.ContentType), orDash(f.UpdatedAt)})
	}
	return Write(w, format, files, []string{"Name", "Size", "Type", "Updated"}, rows)
}

// WriteSites writes per-domain statistics
func WriteSites(w io.Writer, format Format, sites []api.SiteStats) error {
	if sites == nil {
		sites = []api.SiteStats{}
	}
	return Write(w, format, sites, []string{"Domain", "Projects", "Avg health", "Last scraped"}, siteRows(sites))
}

func siteRows(sites []api.SiteStats) [][]string {
	rows := make([][]string, 0, len(sites))
	for _, s := range sites {
		rows = append(rows, []string{s.Domain, strconv.Itoa(s.Projects), formatScore(s.AverageHealthScore), formatScrapedAt(s.LastScrapedAt)})
	}
	return rows
}

// WriteDashboard writes the dashboard aggregates
func WriteDashboard(w io.Writer, format Format, data *api.DashboardData) error {
	if format != FormatTable {
		return Write(w, format, data, nil, nil)
	}
	_, err := fmt.Fprintln(w, FormatOverview(data))
	return err
}

// FormatOverview renders the dashboard aggregates and recent projects
func FormatOverview(data *api.DashboardData) string {
	var b strings.Builder

	if data.Degraded {
		b.WriteString(warningStyle.Render("Backend unavailable, showing empty figures"))
		b.WriteString("\n")
		if data.Error != "" {
			b.WriteString(footerStyle.Render(truncate(data.Error, 100)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(renderTable([]string{"Projects", "Avg health", "Avg load", "Links"}, [][]string{{
		strconv.Itoa(data.TotalProjects),
		formatScore(data.AverageHealthScore),
		formatMillis(data.AverageLoadTimeMs),
		strconv.Itoa(data.TotalLinks),
	}}))
	b.WriteString("\n\n")

	s := data.PageStatuses
	b.WriteString(renderTable([]string{"2xx", "3xx", "4xx", "5xx", "Unknown"}, [][]string{{
		strconv.Itoa(s.Success), strconv.Itoa(s.Redirect), strconv.Itoa(s.ClientError),
		strconv.Itoa(s.ServerError), strconv.Itoa(s.Unknown),
	}}))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Recent projects"))
	b.WriteString("\n")
	if len(data.RecentProjects) == 0 {
		b.WriteString("No projects yet. Run `seodash scrape <url>` to add one.")
		return b.String()
	}
	rows := make([][]string, 0, len(data.RecentProjects))
	for _, p := range data.RecentProjects {
		rows = append(rows, []string{truncate(orDash(p.Title), 40), truncate(p.URL, 50), formatScore(p.HealthScore), formatScrapedAt(p.ScrapedAt)})
	}
	b.WriteString(renderTable([]string{"Title", "URL", "Health", "Scraped"}, rows))
	return b.String()
}

func statusText(code int) string {
	if code == 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

func formatMillis(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.0fms", ms)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatScrapedAt shows scrape times in local time, falling back to the raw value
func formatScrapedAt(s string) string {
	if s == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// wrapText wraps text to the specified width
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		if i > 0 && lineLen+len(word)+1 > width {
			result.WriteString("\n")
			lineLen = 0
		} else if i > 0 {
			result.WriteString(" ")
			lineLen++
		}
		result.WriteString(word)
		lineLen += len(word)
	}

	return result.String()
}
