package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"profilesync/pkg/auth"
	"profilesync/pkg/checkpoint"
	"profilesync/pkg/config"
	"profilesync/pkg/logger"
	"profilesync/pkg/models"
	"profilesync/pkg/queue"
	"profilesync/pkg/ratelimit"
	"profilesync/pkg/reconcile"
	"profilesync/pkg/retry"
	"profilesync/pkg/scraper"
	"profilesync/pkg/syncer"
	"profilesync/pkg/table"
	"profilesync/pkg/table/sheets"
	"profilesync/pkg/table/sqlitetable"
	"profilesync/pkg/tags"
)

// workbook is the rate-limited table client for one configured backend
type workbook struct {
	client table.Client
	gov    *ratelimit.Governor
	close  func() error
}

// openWorkbook connects to the configured backend and wraps it in the quota
// governor; every component built on the returned client shares that governor
func openWorkbook(ctx context.Context, cfg *config.Config, l logger.Logger) (*workbook, error) {
	var raw table.Client
	closeFn := func() error { return nil }

	switch strings.ToLower(cfg.Table.Backend) {
	case "sheets":
		c, err := sheets.New(ctx, cfg.Table.SpreadsheetID, cfg.Table.CredentialsFile)
		if err != nil {
			return nil, err
		}
		raw = c
	case "sqlite":
		s, err := sqlitetable.Open(cfg.Table.SQLitePath)
		if err != nil {
			return nil, err
		}
		raw = s
		closeFn = s.Close
	default:
		return nil, fmt.Errorf("unknown table backend %q", cfg.Table.Backend)
	}

	gov := ratelimit.NewGovernor(quotaPolicy(cfg.RateLimit), nil, l)
	return &workbook{client: table.NewLimited(raw, gov), gov: gov, close: closeFn}, nil
}

func quotaPolicy(rl config.RateLimitConfig) ratelimit.Policy {
	return ratelimit.Policy{
		MaxCallsPerWindow: rl.MaxCallsPerWindow,
		Window:            rl.Window,
		InterCallDelay:    rl.InterCallDelay,
		MaxRetries:        rl.MaxRetries,
		ThrottleBackoff:   retry.NewBackoff(rl.BackoffStrategy, rl.ThrottleBackoff, rl.MaxBackoff),
	}
}

// journalTarget names the run journal after the workbook it syncs into
func journalTarget(cfg *config.Config) string {
	if strings.EqualFold(cfg.Table.Backend, "sqlite") {
		return strings.TrimSuffix(filepath.Base(cfg.Table.SQLitePath), filepath.Ext(cfg.Table.SQLitePath))
	}
	return cfg.Table.SpreadsheetID
}

// applyStoredCredentials fills the site login from the credential store when
// the configuration does not carry a password
func applyStoredCredentials(site *config.SiteConfig, creds *auth.Manager, l logger.Logger) {
	if site.Password != "" || creds == nil {
		return
	}

	var account *auth.Account
	var err error
	if site.Username != "" {
		account, err = creds.Retrieve(site.Username)
	} else {
		account, err = creds.RetrieveDefault()
	}
	if err != nil {
		if !errors.Is(err, auth.ErrCredentialsNotFound) {
			l.WithError(err).Warn("Failed to read stored credentials")
		}
		return
	}

	site.Username = account.Username
	site.Password = account.Password
	if site.BaseURL == "" {
		site.BaseURL = account.SiteURL
	}
	l.WithField("account", account.Username).Info("Using stored site credentials")
}

// newEngine opens the queue, profiles and tags worksheets, logs in to the
// profile site and assembles the sync engine
func newEngine(ctx context.Context, cfg *config.Config, wb *workbook, l logger.Logger) (*syncer.Engine, error) {
	q, err := queue.Open(ctx, wb.client, cfg.Table.QueueSheet, l)
	if err != nil {
		return nil, err
	}

	highlight := table.Style{Background: table.Color{
		Red:   cfg.Highlight.Red,
		Green: cfg.Highlight.Green,
		Blue:  cfg.Highlight.Blue,
	}}
	rec, err := reconcile.Open(ctx, wb.client, cfg.Table.ProfilesSheet, highlight, l)
	if err != nil {
		return nil, fmt.Errorf("open profiles worksheet: %w", err)
	}

	index := tags.Build(ctx, wb.client, cfg.Table.TagsSheet, tags.Labels{
		DisplayNames:  cfg.Tags.DisplayNames,
		DefaultPrefix: cfg.Tags.DefaultPrefix,
	}, l)

	sc, err := scraper.NewHTMLScraper(cfg.Site, l)
	if err != nil {
		return nil, err
	}
	if err := sc.Login(ctx); err != nil {
		return nil, err
	}

	var journal *checkpoint.Manager
	if cfg.Sync.CheckpointEnabled {
		journal, err = checkpoint.NewManager(journalTarget(cfg))
		if err != nil {
			l.WithError(err).Warn("Run journal disabled")
			journal = nil
		}
	}

	return syncer.New(syncer.Deps{
		Queue:       q,
		Reconciler:  rec,
		Tags:        index,
		Scraper:     sc,
		Journal:     journal,
		Target:      journalTarget(cfg),
		CallCounter: wb.gov.Calls,
		Logger:      l,
	}, syncer.Options{
		BatchSize:       cfg.Sync.BatchSize,
		InterBatchDelay: cfg.Sync.InterBatchDelay,
		CommitRetryPass: cfg.Sync.CommitRetryPass,
	}), nil
}

// initWorkbook creates the profiles, queue and tags worksheets in a local
// workbook; existing worksheets are left as they are
func initWorkbook(ctx context.Context, store *sqlitetable.Store, cfg *config.Config) error {
	sheetsToCreate := []struct {
		name   string
		header []string
	}{
		{cfg.Table.ProfilesSheet, models.Headers()},
		{cfg.Table.QueueSheet, models.QueueHeaders},
		{cfg.Table.TagsSheet, nil},
	}
	for _, s := range sheetsToCreate {
		if s.name == "" {
			continue
		}
		if _, err := store.CreateWorksheet(ctx, s.name, s.header); err != nil {
			return err
		}
	}
	return nil
}
