// Package useragent turns raw User-Agent headers into short display strings
// for audit records.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknown = "Unknown Client"

// Describe returns "Browser on OS" for a User-Agent header. Bots and HTTP
// libraries that do not parse as browsers fall back to their product token.
func Describe(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return unknown
	}

	ua := useragent.New(header)
	if ua.Bot() {
		name, _ := ua.Browser()
		if name == "" {
			return "Bot"
		}
		return name + " (bot)"
	}

	browser, _ := ua.Browser()
	os := ua.OS()
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return "Unknown Browser on " + os
	}

	product, _, _ := strings.Cut(header, "/")
	if product = strings.TrimSpace(product); product != "" {
		return product
	}
	return unknown
}
