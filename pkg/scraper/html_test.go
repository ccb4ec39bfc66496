package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"profilesync/pkg/config"
	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/ratelimit"
)

const profilePage = `<html><body>
<h1>bob</h1>
<span class="profile-city">  Lahore&nbsp; </span>
<span class="profile-gender">Male</span>
<span class="profile-married">not set</span>
<span class="profile-age">30</span>
<span class="profile-joined">3 years, 2 months</span>
<span class="profile-followers">120 followers</span>
<span class="profile-posts">45</span>
<div class="profile-last-post">hello
   world</div>
<time class="profile-last-post-time">2 hours ago</time>
<img class="profile-image" src="/img/bob.jpg">
<p class="profile-intro">Hi+ there</p>
</body></html>`

const loginPage = `<html><body><form><input name="nick"><input type="password" name="pass"></form></body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.Method == http.MethodPost && r.FormValue("nick") == "alice" && r.FormValue("pass") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
			fmt.Fprint(w, "<html><body>welcome</body></html>")
			return
		}
		fmt.Fprint(w, loginPage)
	})
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/profile/bob":
			fmt.Fprint(w, profilePage)
		case "/profile/private":
			if c, err := r.Cookie("session"); err == nil && c.Value == "ok" {
				fmt.Fprint(w, profilePage)
				return
			}
			fmt.Fprint(w, loginPage)
		case "/profile/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func siteConfig(baseURL string) config.SiteConfig {
	site := config.DefaultConfig().Site
	site.BaseURL = baseURL
	site.ScrapeDelay = 0
	site.RequestTimeout = 5 * time.Second
	return site
}

func TestScrapeParsesProfile(t *testing.T) {
	srv := newSite(t)
	clock := ratelimit.NewFakeClock(time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC))
	s, err := NewHTMLScraper(siteConfig(srv.URL), logger.NewNopLogger(), WithClock(clock))
	require.NoError(t, err)

	rec, err := s.Scrape(context.Background(), "bob")
	require.NoError(t, err)

	assert.Equal(t, "bob", rec.Identifier)
	assert.Equal(t, clock.Now(), rec.CapturedAt)
	a := rec.Attributes
	assert.Equal(t, "Lahore", a.City)
	assert.Equal(t, "Male", a.Gender)
	assert.Equal(t, "", a.Married)
	assert.Equal(t, "30", a.Age)
	assert.Equal(t, "3, 2", a.Joined)
	assert.Equal(t, "120", a.Followers)
	assert.Equal(t, "45", a.Posts)
	assert.Equal(t, "hello world", a.LastPost)
	assert.Equal(t, "2 hours ago", a.LastPostTime)
	assert.Equal(t, srv.URL+"/profile/bob", a.ProfileLink)
	assert.Equal(t, srv.URL+"/img/bob.jpg", a.ImageURL)
	assert.Equal(t, "Hi there", a.Bio)
}

func TestScrapeMissingProfile(t *testing.T) {
	srv := newSite(t)
	s, err := NewHTMLScraper(siteConfig(srv.URL), logger.NewNopLogger())
	require.NoError(t, err)

	_, err = s.Scrape(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeScrape))
	assert.Contains(t, err.Error(), "not found")
}

func TestScrapeServerError(t *testing.T) {
	srv := newSite(t)
	s, err := NewHTMLScraper(siteConfig(srv.URL), logger.NewNopLogger())
	require.NoError(t, err)

	_, err = s.Scrape(context.Background(), "broken")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeScrape))
}

func TestScrapeWithoutProfileContent(t *testing.T) {
	srv := newSite(t)
	s, err := NewHTMLScraper(siteConfig(srv.URL), logger.NewNopLogger())
	require.NoError(t, err)

	_, err = s.Scrape(context.Background(), "private")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profile content")
}

func TestLoginSharesSession(t *testing.T) {
	srv := newSite(t)
	site := siteConfig(srv.URL)
	site.Username = "alice"
	site.Password = "secret"
	s, err := NewHTMLScraper(site, logger.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, s.Login(context.Background()))

	rec, err := s.Scrape(context.Background(), "private")
	require.NoError(t, err)
	assert.Equal(t, "Lahore", rec.Attributes.City)
}

func TestLoginRejected(t *testing.T) {
	srv := newSite(t)
	site := siteConfig(srv.URL)
	site.Username = "alice"
	site.Password = "wrong"
	s, err := NewHTMLScraper(site, logger.NewNopLogger())
	require.NoError(t, err)

	err = s.Login(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
}

func TestLoginSkippedWithoutUsername(t *testing.T) {
	s, err := NewHTMLScraper(siteConfig("http://127.0.0.1:1"), logger.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, s.Login(context.Background()))
}

func TestScrapeSpacing(t *testing.T) {
	srv := newSite(t)
	site := siteConfig(srv.URL)
	site.ScrapeDelay = 2 * time.Second
	clock := ratelimit.NewFakeClock(time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC))
	s, err := NewHTMLScraper(site, logger.NewNopLogger(), WithClock(clock))
	require.NoError(t, err)

	first, err := s.Scrape(context.Background(), "bob")
	require.NoError(t, err)
	second, err := s.Scrape(context.Background(), "bob")
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{2 * time.Second}, clock.Sleeps())
	assert.Equal(t, 2*time.Second, second.CapturedAt.Sub(first.CapturedAt))
}

func TestScrapeCancelled(t *testing.T) {
	s, err := NewHTMLScraper(siteConfig("http://127.0.0.1:1"), logger.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scrape(ctx, "bob")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTMLScraperValidates(t *testing.T) {
	_, err := NewHTMLScraper(config.SiteConfig{ProfilePath: "/u/%s"}, nil)
	assert.Error(t, err)

	_, err = NewHTMLScraper(config.SiteConfig{BaseURL: "http://x", ProfilePath: "/u/"}, nil)
	assert.Error(t, err)
}
