package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// LangLink is one inter-language link returned by prop=langlinks.
type LangLink struct {
	Lang  string `json:"lang"`
	Title string `json:"*"`
}

// FoundPage describes one title the API resolved.
type FoundPage struct {
	PageID    int64
	Title     string
	LangLinks []LangLink
}

// FindPages looks up titles in one language edition and splits them into
// pages that exist (with their inter-language links) and titles the API
// reported missing. Titles are queried in batches of TitleBatchLimit;
// redirects are followed, so a found Title may differ from the queried one.
// Results are sorted by title so callers iterate deterministically.
func (c *Client) FindPages(ctx context.Context, lang string, titles []string) (found []FoundPage, missing []string, err error) {
	for i := 0; i < len(titles); i += TitleBatchLimit {
		end := i + TitleBatchLimit
		if end > len(titles) {
			end = len(titles)
		}
		batch := titles[i:end]

		params := url.Values{
			"titles":    {strings.Join(batch, "|")},
			"prop":      {"langlinks"},
			"lllimit":   {strconv.Itoa(PageListLimit)}, // We want all langs to cover every target lang
			"redirects": {"1"},                         // For those pesky redirects
		}

		query, _, err := c.Query(ctx, lang, params, "")
		if err != nil {
			return nil, nil, err
		}

		var payload struct {
			Pages map[string]struct {
				Title     string     `json:"title"`
				LangLinks []LangLink `json:"langlinks"`
			} `json:"pages"`
		}
		if err := json.Unmarshal(query, &payload); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		if payload.Pages == nil {
			return nil, nil, fmt.Errorf("%w: missing pages map", ErrBadResponse)
		}

		for pid, page := range payload.Pages {
			id, err := strconv.ParseInt(pid, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: bad page id %q", ErrBadResponse, pid)
			}

			// Negative page ids mark titles that don't exist in this language
			if id < 0 {
				missing = append(missing, page.Title)
				continue
			}
			found = append(found, FoundPage{PageID: id, Title: page.Title, LangLinks: page.LangLinks})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Title < found[j].Title })
	sort.Strings(missing)

	return found, missing, nil
}
