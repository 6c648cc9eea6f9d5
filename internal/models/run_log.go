package models

import "time"

// CrawlLog represents a log entry for crawl passes
type CrawlLog struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Action       string     `gorm:"type:varchar(100);not null" json:"action"`
	ItemCount    int        `gorm:"not null;default:0" json:"item_count"`
	Status       string     `gorm:"type:varchar(50);not null" json:"status"` // "success", "failed", "in_progress"
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for CrawlLog
func (CrawlLog) TableName() string {
	return "crawl_logs"
}

// OrganizeRun persists the summary of one reconciliation run so the API can
// expose run history.
type OrganizeRun struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RunID         string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_organize_runs_run_id" json:"run_id"`
	DryRun        bool      `gorm:"not null" json:"dry_run"`
	ItemsTotal    int       `gorm:"not null;default:0" json:"items_total"`
	ItemsMatched  int       `gorm:"not null;default:0" json:"items_matched"`
	ItemsSkipped  int       `gorm:"not null;default:0" json:"items_skipped"`
	LinksCreated  int       `gorm:"not null;default:0" json:"links_created"`
	LinksExisting int       `gorm:"not null;default:0" json:"links_existing"`
	LinkFailures  int       `gorm:"not null;default:0" json:"link_failures"`
	FilesTotal    int       `gorm:"not null;default:0" json:"files_total"`
	FilesUntagged int       `gorm:"not null;default:0" json:"files_untagged"`
	StartedAt     time.Time `gorm:"not null" json:"started_at"`
	FinishedAt    time.Time `gorm:"not null" json:"finished_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for OrganizeRun
func (OrganizeRun) TableName() string {
	return "organize_runs"
}
