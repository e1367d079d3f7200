package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lepinkainen/seodash/pkg/apperror"
	"github.com/lepinkainen/seodash/pkg/urlutils"
)

// Backend actions
const (
	ActionScrape       = "scrape"
	ActionListProjects = "list_projects"
	ActionGetProject   = "get_project"
	ActionListFiles    = "list_files"
)

// MetaTag is one <meta> element found on the page
type MetaTag struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Property string `json:"property,omitempty" yaml:"property,omitempty"`
	Content  string `json:"content" yaml:"content"`
}

// Project is a scraped site as stored by the backend
type Project struct {
	ID              string    `json:"id" yaml:"id"`
	URL             string    `json:"url" yaml:"url"`
	Title           string    `json:"title" yaml:"title"`
	MetaDescription string    `json:"meta_description,omitempty" yaml:"meta_description,omitempty"`
	MetaTags        []MetaTag `json:"meta_tags,omitempty" yaml:"meta_tags,omitempty"`
	Links           []string  `json:"links,omitempty" yaml:"links,omitempty"`
	StatusCode      int       `json:"status_code" yaml:"status_code"`
	HealthScore     float64   `json:"health_score" yaml:"health_score"`
	LoadTimeMs      float64   `json:"load_time_ms" yaml:"load_time_ms"`
	ScrapedAt       string    `json:"scraped_at" yaml:"scraped_at"`
	// Saved confirms the backend persisted the scrape result
	Saved bool `json:"saved" yaml:"saved"`
}

// File is an artifact the backend produced for a project
type File struct {
	Name        string `json:"name" yaml:"name"`
	Size        int64  `json:"size" yaml:"size"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// CreateProjectResult is the outcome of a successful scrape
type CreateProjectResult struct {
	Success bool    `json:"success" yaml:"success"`
	Data    Project `json:"data" yaml:"data"`
}

// ProjectUpdate holds the editable project fields
type ProjectUpdate struct {
	Title string `json:"title,omitempty"`
}

// CreateProject scrapes rawURL and returns the saved project.
// The URL is validated locally; nothing is sent for bad input.
func (c *Client) CreateProject(ctx context.Context, rawURL string) (*CreateProjectResult, error) {
	target, err := urlutils.NormalizeURL(rawURL)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	res, err := c.Do(ctx, http.MethodPost, map[string]any{
		"action": ActionScrape,
		"url":    target,
	})
	if err != nil {
		return nil, err
	}

	if !res.Success {
		return nil, apperror.Unknown(http.StatusInternalServerError, orDefault(res.Error, "scrape failed"))
	}

	items := res.Items()
	if len(items) == 0 {
		return nil, apperror.Unknown(http.StatusInternalServerError, "scrape returned no results")
	}

	var project Project
	if err := json.Unmarshal(items[0], &project); err != nil {
		return nil, apperror.Unknown(http.StatusInternalServerError, "scrape returned an unreadable result")
	}
	if !project.Saved {
		return nil, apperror.Unknown(http.StatusInternalServerError, "scrape result was not saved")
	}

	return &CreateProjectResult{Success: true, Data: project}, nil
}

// GetProjects lists the user's projects
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	res, err := c.Do(ctx, http.MethodPost, map[string]any{"action": ActionListProjects})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, apperror.Unknown(http.StatusInternalServerError, orDefault(res.Error, "failed to list projects"))
	}

	return decodeItems[Project](res)
}

// GetProject fetches one project by id
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	if id == "" {
		return nil, apperror.Validation("project id is required")
	}

	res, err := c.Do(ctx, http.MethodPost, map[string]any{
		"action": ActionGetProject,
		"id":     id,
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, apperror.Unknown(http.StatusInternalServerError, orDefault(res.Error, "failed to get project"))
	}

	projects, err := decodeItems[Project](res)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, apperror.Unknown(http.StatusNotFound, "project not found")
	}

	return &projects[0], nil
}

// ListFiles lists the files stored for a project
func (c *Client) ListFiles(ctx context.Context, projectID string) ([]File, error) {
	if projectID == "" {
		return nil, apperror.Validation("project id is required")
	}

	res, err := c.Do(ctx, http.MethodGet, map[string]any{
		"action":     ActionListFiles,
		"project_id": projectID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, apperror.Unknown(http.StatusInternalServerError, orDefault(res.Error, "failed to list files"))
	}

	return decodeItems[File](res)
}

// UpdateProject is not supported by the backend and always fails with 501
func (c *Client) UpdateProject(_ context.Context, _ string, _ ProjectUpdate) error {
	return apperror.NotImplemented("update project")
}

// DeleteProject is not supported by the backend and always fails with 501
func (c *Client) DeleteProject(_ context.Context, _ string) error {
	return apperror.NotImplemented("delete project")
}

func decodeItems[T any](res *Result) ([]T, error) {
	items := res.Items()
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, apperror.Unknown(http.StatusInternalServerError, "backend returned malformed data")
		}
		out = append(out, v)
	}
	return out, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
