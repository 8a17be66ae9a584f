package wikiquery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wikistats/pkg/prose"
	"wikistats/pkg/readability"
	"wikistats/pkg/wikipedia"
)

// A Step is one independently failable unit of the fetch pipeline. A non-nil
// error is recorded on the page and the next step runs, except for
// ErrPrecondition which aborts the page.
type Step struct {
	Name string
	Run  func(ctx context.Context, q *Query, p *Page) error
}

// steps is the pipeline in dependency order: base info first (everything
// after needs the page id or the last-updated anchor), extended info before
// revisions (creation timestamp bounds the window).
var steps = []Step{
	{"base_info", stepBaseInfo},
	{"backlinks", stepBacklinks},
	{"assessments", stepAssessments},
	{"extended_info", stepExtendedInfo},
	{"contributors", stepContributors},
	{"revisions", stepRevisions},
	{"pageviews", stepPageviews},
	{"extract", stepExtract},
}

// StepNames returns the pipeline step names in execution order.
func StepNames() []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func stepBaseInfo(ctx context.Context, q *Query, p *Page) error {
	params := url.Values{
		"titles": {p.Title},
		"prop":   {"info"},
	}
	query, _, err := q.client.Query(ctx, p.Lang, params, "info_"+p.Lang+"_"+wikipedia.WikiTitle(p.Title))
	if err != nil {
		return err
	}

	pid, _, err := wikipedia.SinglePage(query)
	if err != nil {
		return err
	}
	if pid < 0 {
		return ErrNotFound
	}
	p.PID = pid

	desc, err := q.client.Summary(ctx, p.Lang, p.Title)
	if err != nil {
		return err
	}
	if desc == "" {
		desc = "(no description found)"
	}
	p.Description = desc
	return nil
}

func stepBacklinks(ctx context.Context, q *Query, p *Page) error {
	limit := q.cfg.BacklinksLimit
	params := url.Values{
		"list":    {"backlinks"},
		"bltitle": {p.Title},
		"bllimit": {strconv.Itoa(min(limit, wikipedia.PageListLimit))},
	}

	return q.client.QueryPaginated(ctx, p.Lang, params, "blcontinue", limit, func(query json.RawMessage) (int, error) {
		var payload struct {
			Backlinks []struct {
				Title string `json:"title"`
			} `json:"backlinks"`
		}
		if err := json.Unmarshal(query, &payload); err != nil {
			return 0, fmt.Errorf("%w: %v", wikipedia.ErrBadResponse, err)
		}
		if payload.Backlinks == nil {
			return 0, fmt.Errorf("%w: missing backlinks", wikipedia.ErrBadResponse)
		}
		for _, bl := range payload.Backlinks {
			p.AddBacklinks(bl.Title)
		}
		return len(payload.Backlinks), nil
	})
}

func stepAssessments(ctx context.Context, q *Query, p *Page) error {
	params := url.Values{
		"titles":  {p.Title},
		"prop":    {"pageassessments"},
		"palimit": {strconv.Itoa(wikipedia.PageListLimit)},
	}
	query, _, err := q.client.Query(ctx, p.Lang, params, "pa_"+p.Lang+"_"+wikipedia.WikiTitle(p.Title))
	if err != nil {
		return err
	}

	_, raw, err := wikipedia.SinglePage(query)
	if err != nil {
		return err
	}

	var page struct {
		Assessments map[string]Assessment `json:"pageassessments"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return fmt.Errorf("%w: %v", wikipedia.ErrBadResponse, err)
	}
	// Most pages simply have no WikiProject ratings
	if len(page.Assessments) > 0 {
		p.Assessments = page.Assessments
	}
	return nil
}

func stepExtendedInfo(ctx context.Context, q *Query, p *Page) error {
	params := url.Values{
		"titles":  {p.Title},
		"prop":    {"pageprops|revisions"},
		"rvdir":   {"newer"}, // Oldest revision first = the page creation
		"rvlimit": {"1"},
		"rvprop":  {"timestamp|user"},
	}
	query, _, err := q.client.Query(ctx, p.Lang, params, "ext_"+p.Lang+"_"+wikipedia.WikiTitle(p.Title))
	if err != nil {
		return err
	}

	_, raw, err := wikipedia.SinglePage(query)
	if err != nil {
		return err
	}

	var page struct {
		Pageprops struct {
			WikibaseItem string `json:"wikibase_item"`
		} `json:"pageprops"`
		Revisions []struct {
			Timestamp string `json:"timestamp"`
			User      string `json:"user"`
		} `json:"revisions"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return fmt.Errorf("%w: %v", wikipedia.ErrBadResponse, err)
	}

	p.WikidataItem = page.Pageprops.WikibaseItem
	if len(page.Revisions) == 0 {
		return fmt.Errorf("%w: missing first revision", wikipedia.ErrBadResponse)
	}
	ts, err := time.Parse(time.RFC3339, page.Revisions[0].Timestamp)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", wikipedia.ErrBadResponse, page.Revisions[0].Timestamp)
	}
	p.Creation = &Creation{Timestamp: ts, User: page.Revisions[0].User}
	return nil
}

func stepContributors(ctx context.Context, q *Query, p *Page) error {
	if p.PID < 0 {
		return fmt.Errorf("%w: contributors needs a page id", ErrPrecondition)
	}

	limit := q.cfg.ContributionsLimit
	params := url.Values{
		"pageids": {strconv.FormatInt(p.PID, 10)},
		"prop":    {"contributors"},
		"pclimit": {strconv.Itoa(min(limit, wikipedia.PageListLimit))},
	}

	return q.client.QueryPaginated(ctx, p.Lang, params, "pccontinue", limit, func(query json.RawMessage) (int, error) {
		_, raw, err := wikipedia.SinglePage(query)
		if err != nil {
			return 0, err
		}
		var page struct {
			Contributors []struct {
				Name string `json:"name"`
			} `json:"contributors"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", wikipedia.ErrBadResponse, err)
		}
		for _, c := range page.Contributors {
			p.AddContributors(c.Name)
		}
		return len(page.Contributors), nil
	})
}

func stepRevisions(ctx context.Context, q *Query, p *Page) error {
	end, start := q.window(p)
	params := url.Values{
		"titles":  {p.Title},
		"prop":    {"revisions"},
		"rvdir":   {"older"}, // Newest first, walking back to the window start
		"rvstart": {end.Format(time.RFC3339)},
		"rvend":   {start.Format(time.RFC3339)},
		"rvprop":  {"ids|timestamp|user|size"},
		"rvlimit": {strconv.Itoa(wikipedia.PageListLimit)},
	}

	return q.client.QueryPaginated(ctx, p.Lang, params, "rvcontinue", wikipedia.PageListLimit, func(query json.RawMessage) (int, error) {
		_, raw, err := wikipedia.SinglePage(query)
		if err != nil {
			return 0, err
		}
		var page struct {
			Revisions []struct {
				RevID     int64  `json:"revid"`
				ParentID  int64  `json:"parentid"`
				Timestamp string `json:"timestamp"`
				User      string `json:"user"`
				Size      int64  `json:"size"`
			} `json:"revisions"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", wikipedia.ErrBadResponse, err)
		}
		for _, rev := range page.Revisions {
			ts, err := time.Parse(time.RFC3339, rev.Timestamp)
			if err != nil {
				return 0, fmt.Errorf("%w: bad timestamp %q", wikipedia.ErrBadResponse, rev.Timestamp)
			}
			p.AddRevisions(Revision{
				RevID:     rev.RevID,
				ParentID:  rev.ParentID,
				Timestamp: ts,
				User:      rev.User,
				Size:      rev.Size,
			})
		}
		return len(page.Revisions), nil
	})
}

func stepPageviews(ctx context.Context, q *Query, p *Page) error {
	end, start := q.window(p)
	points, err := q.client.PageviewsDaily(ctx, p.Lang, p.Title, start, end)
	if err != nil {
		return err
	}
	p.AddPageviews(points...)
	return nil
}

func stepExtract(ctx context.Context, q *Query, p *Page) error {
	params := url.Values{
		"titles": {p.Title},
		"prop":   {"extracts"},
	}

	var html strings.Builder
	err := q.client.QueryPaginated(ctx, p.Lang, params, "excontinue", 0, func(query json.RawMessage) (int, error) {
		_, raw, err := wikipedia.SinglePage(query)
		if err != nil {
			return 0, err
		}
		var page struct {
			Extract string `json:"extract"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", wikipedia.ErrBadResponse, err)
		}
		html.WriteString(page.Extract)
		return 1, nil
	})
	if err != nil {
		return err
	}

	info, err := prose.Extract(strings.NewReader(html.String()))
	if err != nil {
		return err
	}
	if info.Text == "" {
		return ErrEmptyExtract
	}
	p.Extract = info.Text

	stats, err := readability.Compute(info.Text, p.Lang)
	if err != nil {
		return err
	}
	p.Readability = stats
	return nil
}

// window returns the (end, start) bounds of the revision/pageview window:
// the last-updated anchor looking back the configured number of days, but
// never before the page existed.
func (q *Query) window(p *Page) (end, start time.Time) {
	end = p.LastUpdated
	start = end.AddDate(0, 0, -q.cfg.DurationDays)
	if p.Creation != nil && p.Creation.Timestamp.After(start) {
		start = p.Creation.Timestamp
	}
	return end, start
}
