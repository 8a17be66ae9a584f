package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Summary fetches the short description for a page from the REST summary
// endpoint. An empty string means the page has no description.
func (c *Client) Summary(ctx context.Context, lang, title string) (string, error) {
	u := fmt.Sprintf("%s/page/summary/%s?redirect=true", c.restURL(lang), WikiTitle(title))

	body, err := c.request.Get(ctx, u, "summary_"+lang+"_"+WikiTitle(title))
	if err != nil {
		return "", err
	}

	var payload struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return payload.Description, nil
}

// PageviewPoint is one entry of a pageview time series.
type PageviewPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Views     int64     `json:"views"`
}

// PageviewsDaily fetches the per-article daily pageview series between start
// and end (inclusive, day resolution).
func (c *Client) PageviewsDaily(ctx context.Context, lang, title string, start, end time.Time) ([]PageviewPoint, error) {
	u := fmt.Sprintf("%s/pageviews/per-article/%s.wikipedia/%s/%s/%s/daily/%s00/%s00",
		c.metricsURL(), lang, Access, Agents, WikiTitle(title),
		start.Format("20060102"), end.Format("20060102"))

	cacheKey := fmt.Sprintf("pv_%s_%s_%s_%s", lang, WikiTitle(title),
		start.Format("20060102"), end.Format("20060102"))
	body, err := c.request.Get(ctx, u, cacheKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Items []struct {
			Timestamp string `json:"timestamp"`
			Views     int64  `json:"views"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if payload.Items == nil {
		return nil, fmt.Errorf("%w: missing items", ErrBadResponse)
	}

	points := make([]PageviewPoint, 0, len(payload.Items))
	for _, item := range payload.Items {
		// Timestamps come back as YYYYMMDDHH
		ts, err := time.Parse("2006010215", item.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp %q", ErrBadResponse, item.Timestamp)
		}
		points = append(points, PageviewPoint{Timestamp: ts, Views: item.Views})
	}
	return points, nil
}
