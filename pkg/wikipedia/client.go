// Package wikipedia wraps the MediaWiki action API and the Wikimedia REST
// endpoints used to collect article metadata.
package wikipedia

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"wikistats/pkg/request"
)

// Limits published by the API.
// https://www.mediawiki.org/wiki/API:Query#Additional_notes
const (
	// TitleBatchLimit is the maximum number of titles per query call.
	TitleBatchLimit = 50
	// PageListLimit is the maximum number of list items per call, and the
	// default cap applied to paginated fetches.
	PageListLimit = 500
)

// Pageview series parameters.
const (
	Access = "all-access"
	Agents = "all-agents"
)

// ErrBadResponse marks a response that doesn't have the expected shape.
// Callers record it per field and move on; it never aborts a whole run.
var ErrBadResponse = errors.New("unexpected response shape")

// Client handles Wikipedia API interactions.
type Client struct {
	request *request.Client

	// Optional endpoint overrides for testing. When set, they are used for
	// every language.
	APIEndpoint     string // action API, normally https://{lang}.wikipedia.org/w/api.php
	RESTEndpoint    string // REST base, normally https://{lang}.wikipedia.org/api/rest_v1
	MetricsEndpoint string // normally https://wikimedia.org/api/rest_v1/metrics
}

// NewClient creates a new Wikipedia client.
func NewClient(r *request.Client) *Client {
	return &Client{request: r}
}

func (c *Client) apiURL(lang string) string {
	if c.APIEndpoint != "" {
		return c.APIEndpoint
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
}

func (c *Client) restURL(lang string) string {
	if c.RESTEndpoint != "" {
		return c.RESTEndpoint
	}
	return fmt.Sprintf("https://%s.wikipedia.org/api/rest_v1", lang)
}

func (c *Client) metricsURL() string {
	if c.MetricsEndpoint != "" {
		return c.MetricsEndpoint
	}
	return "https://wikimedia.org/api/rest_v1/metrics"
}

// WikiTitle converts a page name into its wiki URI form: spaces become the
// wiki-internal underscore separator, then the result is percent-encoded.
func WikiTitle(name string) string {
	return url.PathEscape(strings.ReplaceAll(name, " ", "_"))
}
