package wikiquery

import (
	"fmt"
	"net/url"
	"strings"

	"wikistats/pkg/wikipedia"
)

// Link is one parsed target: a title, optionally pinned to a language
// edition. An empty Lang means the title must be fanned out to every target
// language.
type Link struct {
	Lang  string
	Title string
}

// URL renders the canonical article URL for a labeled link.
func (l Link) URL() string {
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", l.Lang, wikipedia.WikiTitle(l.Title))
}

// ParseTarget parses a raw user-supplied target into a Link. Targets arrive
// as full article URLs or bare titles, often copy-pasted with stray quotes or
// commas around them. Returns ok=false for strings that are empty after
// stripping or URLs that cannot be parsed; those are discarded silently.
func ParseTarget(raw string) (Link, bool) {
	s := strings.Trim(strings.TrimSpace(raw), `"',`)
	if s == "" {
		return Link{}, false
	}

	if !strings.Contains(s, "wikipedia.org") {
		// Bare title, language decided later by fan-out
		return Link{Title: strings.ReplaceAll(s, " ", "_")}, true
	}

	// Scheme-less URLs ("de.wikipedia.org/wiki/...") still need to parse as
	// URLs, so give them a protocol-relative prefix first.
	if !strings.Contains(s, "://") && !strings.HasPrefix(s, "//") {
		s = "//" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return Link{}, false
	}

	lang, _, ok := strings.Cut(u.Host, ".")
	if !ok || lang == "" {
		return Link{}, false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	title := segments[len(segments)-1]
	if decoded, err := url.PathUnescape(title); err == nil {
		title = decoded
	}
	title = strings.ReplaceAll(title, " ", "_")
	if title == "" {
		return Link{}, false
	}

	return Link{Lang: strings.ToLower(lang), Title: title}, true
}
