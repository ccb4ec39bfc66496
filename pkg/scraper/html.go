package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly"
	"profilesync/pkg/config"
	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/models"
	"profilesync/pkg/ratelimit"
)

// field binds a selector key to an attribute and its normaliser
type field struct {
	key   string
	attr  string
	clean func(string) string
	set   func(a *models.Attributes, v string)
}

var fields = []field{
	{key: "city", clean: CleanText, set: func(a *models.Attributes, v string) { a.City = v }},
	{key: "gender", clean: CleanText, set: func(a *models.Attributes, v string) { a.Gender = v }},
	{key: "married", clean: CleanText, set: func(a *models.Attributes, v string) { a.Married = v }},
	{key: "age", clean: CleanText, set: func(a *models.Attributes, v string) { a.Age = v }},
	{key: "joined", clean: Numbers, set: func(a *models.Attributes, v string) { a.Joined = v }},
	{key: "followers", clean: FirstNumber, set: func(a *models.Attributes, v string) { a.Followers = v }},
	{key: "posts", clean: FirstNumber, set: func(a *models.Attributes, v string) { a.Posts = v }},
	{key: "last_post", clean: Preview, set: func(a *models.Attributes, v string) { a.LastPost = v }},
	{key: "last_post_time", clean: CleanText, set: func(a *models.Attributes, v string) { a.LastPostTime = v }},
	{key: "image", attr: "src", clean: strings.TrimSpace, set: func(a *models.Attributes, v string) { a.ImageURL = v }},
	{key: "bio", clean: CleanText, set: func(a *models.Attributes, v string) { a.Bio = v }},
}

// Option configures an HTMLScraper
type Option func(*HTMLScraper)

// WithClock sets the clock used for capture timestamps and scrape spacing
func WithClock(c ratelimit.Clock) Option {
	return func(s *HTMLScraper) { s.clock = c }
}

// HTMLScraper reads profile pages with a colly collector
type HTMLScraper struct {
	site   config.SiteConfig
	base   *colly.Collector
	clock  ratelimit.Clock
	pacer  *ratelimit.SlidingWindow
	logger logger.Logger
}

// NewHTMLScraper creates a scraper for the configured site
func NewHTMLScraper(site config.SiteConfig, l logger.Logger, opts ...Option) (*HTMLScraper, error) {
	if site.BaseURL == "" {
		return nil, fmt.Errorf("site base URL is required")
	}
	if !strings.Contains(site.ProfilePath, "%s") {
		return nil, fmt.Errorf("profile path %q must contain %%s", site.ProfilePath)
	}

	collectorOpts := []func(*colly.Collector){colly.AllowURLRevisit()}
	if site.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(site.UserAgent))
	}
	base := colly.NewCollector(collectorOpts...)
	if site.RequestTimeout > 0 {
		base.SetRequestTimeout(site.RequestTimeout)
	}

	s := &HTMLScraper{
		site:   site,
		base:   base,
		clock:  ratelimit.RealClock(),
		logger: logger.OrGlobal(l).WithField("component", "scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if site.ScrapeDelay > 0 {
		s.pacer = ratelimit.NewSlidingWindow(1, site.ScrapeDelay, s.clock)
	}
	return s, nil
}

func (s *HTMLScraper) url(path string) string {
	return strings.TrimRight(s.site.BaseURL, "/") + path
}

// Login posts the site credentials once; the session cookie is shared by every
// later scrape. It is a no-op when no username is configured.
func (s *HTMLScraper) Login(ctx context.Context) error {
	if s.site.Username == "" {
		s.logger.Debug("No site username configured, skipping login")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c := s.base.Clone()
	formSeen := false
	if sel := s.site.Selectors["login_form"]; sel != "" {
		c.OnHTML(sel, func(_ *colly.HTMLElement) { formSeen = true })
	}
	var status int
	c.OnError(func(r *colly.Response, _ error) { status = r.StatusCode })

	s.logger.WithField("username", s.site.Username).Info("Logging in to profile site")
	err := c.Post(s.url(s.site.LoginPath), map[string]string{
		"nick": s.site.Username,
		"pass": s.site.Password,
	})
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return errs.Wrap(errs.ErrorTypeAuth, err, "login rejected").WithCode(status)
		}
		return errs.Wrap(errs.ErrorTypeNetwork, err, "login request failed").WithCode(status)
	}
	if formSeen {
		return errs.New(errs.ErrorTypeAuth, "login rejected: login form shown again")
	}

	s.logger.Info("Logged in")
	return nil
}

// Scrape fetches and parses one profile page
func (s *HTMLScraper) Scrape(ctx context.Context, identifier string) (models.Record, error) {
	if s.pacer != nil {
		if err := s.pacer.Wait(ctx); err != nil {
			return models.Record{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return models.Record{}, err
	}

	link := s.url(fmt.Sprintf(s.site.ProfilePath, identifier))
	rec := models.Record{Identifier: identifier}
	rec.Attributes.ProfileLink = link

	c := s.base.Clone()
	found := s.site.Selectors["profile"] == ""
	c.OnHTML("html", func(e *colly.HTMLElement) {
		if sel := s.site.Selectors["profile"]; sel != "" && e.DOM.Find(sel).Length() > 0 {
			found = true
		}
		for _, f := range fields {
			sel := s.site.Selectors[f.key]
			if sel == "" {
				continue
			}
			var raw string
			if f.attr != "" {
				raw = e.ChildAttr(sel, f.attr)
				if raw != "" {
					raw = e.Request.AbsoluteURL(raw)
				}
			} else {
				raw = e.DOM.Find(sel).First().Text()
			}
			f.set(&rec.Attributes, f.clean(raw))
		}
	})
	var status int
	c.OnError(func(r *colly.Response, _ error) { status = r.StatusCode })

	start := s.clock.Now()
	if err := c.Visit(link); err != nil {
		if status == http.StatusNotFound {
			return models.Record{}, errs.Newf(errs.ErrorTypeScrape, "profile %s not found", identifier).WithCode(status)
		}
		return models.Record{}, errs.Wrap(errs.ErrorTypeScrape, err, fmt.Sprintf("failed to fetch profile %s", identifier)).WithCode(status)
	}
	if !found {
		return models.Record{}, errs.Newf(errs.ErrorTypeScrape, "profile %s has no profile content", identifier)
	}

	rec.CapturedAt = s.clock.Now()
	s.logger.DebugWithFields("Profile scraped", map[string]interface{}{
		"identifier": identifier,
		"duration":   rec.CapturedAt.Sub(start).Round(time.Millisecond),
	})
	return rec, nil
}
