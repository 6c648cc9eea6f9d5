package api

import (
	"time"

	"github.com/tlemarchand/shelfer/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PaginatedResponse wraps paginated results with metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	TotalPages int         `json:"total_pages"`
}

// ItemResponse represents a catalog item response
type ItemResponse struct {
	ID            uint                 `json:"id"`
	SourceURL     string               `json:"source_url"`
	Title         string               `json:"title"`
	EffectiveName string               `json:"effective_name"`
	ThumbnailURL  string               `json:"thumbnail_url,omitempty"`
	ReleaseDate   string               `json:"release_date,omitempty"`
	Duration      string               `json:"duration,omitempty"`
	DownloadState models.DownloadState `json:"download_state"`
	Categories    []CategoryResponse   `json:"categories,omitempty"`
	CreatedAt     string               `json:"created_at"`
	UpdatedAt     string               `json:"updated_at"`
}

// CategoryResponse represents a category response
type CategoryResponse struct {
	ID        uint                `json:"id"`
	Name      string              `json:"name"`
	Kind      models.CategoryKind `json:"kind"`
	BucketDir string              `json:"bucket_dir"`
}

// RunResponse represents an organize run summary
type RunResponse struct {
	RunID         string `json:"run_id"`
	DryRun        bool   `json:"dry_run"`
	ItemsTotal    int    `json:"items_total"`
	ItemsMatched  int    `json:"items_matched"`
	ItemsSkipped  int    `json:"items_skipped"`
	LinksCreated  int    `json:"links_created"`
	LinksExisting int    `json:"links_existing"`
	LinkFailures  int    `json:"link_failures"`
	FilesTotal    int    `json:"files_total"`
	FilesUntagged int    `json:"files_untagged"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at"`
}

// OrganizeRequest represents an organize trigger request
type OrganizeRequest struct {
	DryRun bool `json:"dry_run"`
}

func itemToResponse(item *models.CatalogItem) ItemResponse {
	resp := ItemResponse{
		ID:            item.ID,
		SourceURL:     item.SourceURL,
		Title:         item.Title,
		EffectiveName: item.EffectiveName(),
		ThumbnailURL:  item.ThumbnailURL,
		ReleaseDate:   item.ReleaseDate,
		Duration:      item.Duration,
		DownloadState: item.DownloadState,
		CreatedAt:     item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     item.UpdatedAt.Format(time.RFC3339),
	}
	for i := range item.Categories {
		resp.Categories = append(resp.Categories, categoryToResponse(&item.Categories[i]))
	}
	return resp
}

func categoryToResponse(cat *models.Category) CategoryResponse {
	return CategoryResponse{
		ID:        cat.ID,
		Name:      cat.Name,
		Kind:      cat.Kind,
		BucketDir: cat.BucketDir(),
	}
}

func runToResponse(run *models.OrganizeRun) RunResponse {
	return RunResponse{
		RunID:         run.RunID,
		DryRun:        run.DryRun,
		ItemsTotal:    run.ItemsTotal,
		ItemsMatched:  run.ItemsMatched,
		ItemsSkipped:  run.ItemsSkipped,
		LinksCreated:  run.LinksCreated,
		LinksExisting: run.LinksExisting,
		LinkFailures:  run.LinkFailures,
		FilesTotal:    run.FilesTotal,
		FilesUntagged: run.FilesUntagged,
		StartedAt:     run.StartedAt.Format(time.RFC3339),
		FinishedAt:    run.FinishedAt.Format(time.RFC3339),
	}
}
