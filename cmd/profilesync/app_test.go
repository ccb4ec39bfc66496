package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"profilesync/pkg/auth"
	"profilesync/pkg/config"
	"profilesync/pkg/logger"
	"profilesync/pkg/models"
	"profilesync/pkg/queue"
	"profilesync/pkg/table/sqlitetable"
)

func profileSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/profile/"):]
		if id == "ghost" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>%s</h1><span class="profile-city">Lahore</span><span class="profile-age">30</span></body></html>`, id)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func localConfig(t *testing.T, siteURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Table.Backend = "sqlite"
	cfg.Table.SQLitePath = filepath.Join(t.TempDir(), "profiles.db")
	cfg.Site.BaseURL = siteURL
	cfg.Site.ScrapeDelay = 0
	cfg.Sync.BatchSize = 2
	cfg.Sync.InterBatchDelay = 0
	cfg.Sync.CheckpointEnabled = false
	cfg.RateLimit.InterCallDelay = 0
	return cfg
}

func TestSyncAgainstLocalWorkbook(t *testing.T) {
	ctx := context.Background()
	srv := profileSite(t)
	cfg := localConfig(t, srv.URL)
	l := logger.NewNopLogger()

	store, err := sqlitetable.Open(cfg.Table.SQLitePath)
	require.NoError(t, err)
	require.NoError(t, initWorkbook(ctx, store, cfg))
	tagsWS, err := store.OpenWorksheet(ctx, cfg.Table.TagsSheet)
	require.NoError(t, err)
	require.NoError(t, store.AppendRow(ctx, tagsWS, []string{"Following"}))
	require.NoError(t, store.AppendRow(ctx, tagsWS, []string{"alice"}))
	require.NoError(t, store.Close())

	wb, err := openWorkbook(ctx, cfg, l)
	require.NoError(t, err)
	defer wb.close()

	q, err := queue.Open(ctx, wb.client, cfg.Table.QueueSheet, l)
	require.NoError(t, err)
	added, err := q.Add(ctx, "alice", "ghost", "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	engine, err := newEngine(ctx, cfg, wb, l)
	require.NoError(t, err)
	summary, err := engine.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, wb.gov.Calls(), summary.APICalls)
	assert.Empty(t, summary.Uncommitted)

	profilesWS, err := wb.client.OpenWorksheet(ctx, cfg.Table.ProfilesSheet)
	require.NoError(t, err)
	rows, err := wb.client.ReadAllRows(ctx, profilesWS)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Headers(), rows[0])

	byID := map[string]models.RemoteRow{}
	for i, cells := range rows[1:] {
		r := models.RemoteRowFromCells(i+2, cells)
		byID[r.Identifier] = r
	}
	require.Contains(t, byID, "alice")
	require.Contains(t, byID, "bob")
	assert.Equal(t, "🔗 Following", byID["alice"].Tags)
	assert.Equal(t, "", byID["bob"].Tags)
	assert.Equal(t, "Lahore", byID["bob"].Attributes.City)

	items, err := q.List(ctx)
	require.NoError(t, err)
	statuses := map[string]models.Status{}
	for _, it := range items {
		statuses[it.Identifier] = it.Status
	}
	assert.Equal(t, map[string]models.Status{
		"alice": models.StatusCompleted,
		"ghost": models.StatusFailed,
		"bob":   models.StatusCompleted,
	}, statuses)

	again, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Batches)
}

func TestOpenWorkbookUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Table.Backend = "csv"
	_, err := openWorkbook(context.Background(), cfg, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestJournalTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Table.SpreadsheetID = "sheet-123"
	assert.Equal(t, "sheet-123", journalTarget(cfg))

	cfg.Table.Backend = "sqlite"
	cfg.Table.SQLitePath = "/data/profiles.db"
	assert.Equal(t, "profiles", journalTarget(cfg))
}

func TestApplyStoredCredentials(t *testing.T) {
	creds, store := auth.NewMockManager()
	require.NoError(t, store.Store(&auth.Account{Username: "alice", Password: "secret", SiteURL: "https://profiles.example.com"}))
	l := logger.NewNopLogger()

	site := config.SiteConfig{}
	applyStoredCredentials(&site, creds, l)
	assert.Equal(t, "alice", site.Username)
	assert.Equal(t, "secret", site.Password)
	assert.Equal(t, "https://profiles.example.com", site.BaseURL)

	site = config.SiteConfig{Username: "alice", Password: "from-env"}
	applyStoredCredentials(&site, creds, l)
	assert.Equal(t, "from-env", site.Password)

	site = config.SiteConfig{Username: "bob"}
	applyStoredCredentials(&site, creds, l)
	assert.Equal(t, "", site.Password)
}
