package reconcile

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/images"
	"github.com/tlemarchand/shelfer/internal/linkfarm"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/matcher"
	"github.com/tlemarchand/shelfer/internal/models"
	"github.com/tlemarchand/shelfer/internal/scan"
	"github.com/tlemarchand/shelfer/internal/sidecar"
)

// RunFromConfig assembles the full organize pipeline from the loaded
// configuration, scans the source directory, reconciles every catalog item
// and persists the run summary. This is the entry point shared by the CLI
// and the API.
func RunFromConfig(db *gorm.DB, dryRun bool) (*Report, error) {
	cfg := config.Get()

	var items []models.CatalogItem
	if db != nil {
		if err := db.Preload("Categories").Find(&items).Error; err != nil {
			return nil, fmt.Errorf("failed to load catalog items: %w", err)
		}
	}

	scanner := scan.New(scan.Config{
		Recursive:  cfg.Library.Recursive,
		Extensions: cfg.Library.Extensions,
	})
	corpus, err := scanner.Scan(cfg.Library.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source directory: %w", err)
	}

	m := matcher.New(matcher.Config{
		MinOverlap:   cfg.Matcher.MinOverlap,
		MinKeyLength: cfg.Matcher.MinKeyLength,
	})

	builder := linkfarm.New(linkfarm.Config{
		MaxRenameAttempts: cfg.Linker.MaxRenameAttempts,
		HardLinkFallback:  cfg.Linker.HardLinkFallback,
		DryRun:            dryRun,
	})

	var sidecars SidecarWriter
	if !dryRun {
		fetcher := images.NewFetcher(&cfg.Images, logger.AppLogger())
		sidecars = sidecar.New(sidecar.Config{OrganizeRoot: cfg.Library.OrganizeRoot}, fetcher)
	}

	engine := New(Config{
		OrganizeRoot: cfg.Library.OrganizeRoot,
		DryRun:       dryRun,
	}, m, builder, sidecars)

	report, err := engine.Run(items, corpus)
	if err != nil {
		return nil, err
	}

	if db != nil {
		if err := persistRun(db, report); err != nil {
			logger.AppLogger().WithFields(map[string]interface{}{
				"run_id": report.RunID,
			}).Warn("failed to persist organize run")
		}
	}

	return report, nil
}

func persistRun(db *gorm.DB, report *Report) error {
	run := &models.OrganizeRun{
		RunID:         report.RunID,
		DryRun:        report.DryRun,
		ItemsTotal:    report.ItemsTotal,
		ItemsMatched:  report.ItemsMatched,
		ItemsSkipped:  report.ItemsSkipped,
		LinksCreated:  report.LinksCreated,
		LinksExisting: report.LinksExisting,
		LinkFailures:  len(report.Failures),
		FilesTotal:    report.FilesTotal,
		FilesUntagged: report.FilesUntagged,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.FinishedAt,
	}
	return db.Create(run).Error
}
