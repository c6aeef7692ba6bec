package offshore

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"screener/internal/screening/models"
)

const (
	selectorRows     = "table.search__results__table tbody tr"
	selectorMore     = "a[data-more-results]"
	notAvailable     = "N/A"
	minCellsPerEntry = 4
)

// parsePage reads the results table and the next-page link from one page.
// A page without the table yields no entities and no error.
func parsePage(html string, base *url.URL, query string, scrapedAt time.Time) ([]models.Entity, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("parse results markup: %w", err)
	}

	var entities []models.Entity
	doc.Find(selectorRows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minCellsPerEntry {
			return
		}

		e := models.Entity{
			EntityName:   notAvailable,
			Jurisdiction: orNA(cells.Eq(1).Text()),
			LinkedTo:     orNA(cells.Eq(2).Text()),
			DataFrom:     notAvailable,
			SearchQuery:  query,
			ScrapedAt:    scrapedAt,
		}
		if link := cells.Eq(0).Find("a").First(); link.Length() > 0 {
			e.EntityName = orNA(link.Text())
			if href, ok := link.Attr("href"); ok && href != "" {
				e.EntityURL = resolve(base, href)
			}
		}
		if link := cells.Eq(3).Find("a").First(); link.Length() > 0 {
			e.DataFrom = orNA(link.Text())
			if href, ok := link.Attr("href"); ok && href != "" {
				e.DataFromURL = &href
			}
		}
		entities = append(entities, e)
	})

	next := ""
	if href, ok := doc.Find(selectorMore).First().Attr("href"); ok && href != "" {
		if u := resolve(base, href); u != nil {
			next = *u
		}
	}
	return entities, next, nil
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notAvailable
	}
	return s
}

func resolve(base *url.URL, href string) *string {
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	s := base.ResolveReference(ref).String()
	return &s
}
