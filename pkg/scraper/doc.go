// Package scraper turns a queue identifier into a freshly captured profile
// record.
//
// The Scraper interface is all the sync engine depends on. HTMLScraper is the
// production implementation: it logs in to the profile site once, then
// fetches one profile page per identifier with a colly collector and reads
// each attribute through a configurable CSS selector.
//
// Usage:
//
//	s, err := scraper.NewHTMLScraper(cfg.Site, log)
//	if err != nil {
//	    return err
//	}
//	if err := s.Login(ctx); err != nil {
//	    return err
//	}
//	rec, err := s.Scrape(ctx, "alice")
//
// Values are normalised before they leave the package: whitespace is
// collapsed and placeholder text such as "not set" becomes empty, so the
// reconciler never mistakes a missing value for a change.
package scraper
