package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// queryEnvelope is the common shell of every action=query response.
type queryEnvelope struct {
	Continue map[string]any  `json:"continue"`
	Query    json.RawMessage `json:"query"`
}

// Query performs a single action=query call against one language edition and
// returns the raw query payload plus the continuation tokens, if any.
func (c *Client) Query(ctx context.Context, lang string, params url.Values, cacheKey string) (json.RawMessage, map[string]string, error) {
	u, err := url.Parse(c.apiURL(lang))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid api endpoint: %w", err)
	}

	q := u.Query()
	q.Set("action", "query")
	q.Set("format", "json")
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	body, err := c.request.Get(ctx, u.String(), cacheKey)
	if err != nil {
		return nil, nil, err
	}

	var env queryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if env.Query == nil {
		return nil, nil, fmt.Errorf("%w: missing query object", ErrBadResponse)
	}

	// Continuation values are usually strings, but some fields (excontinue)
	// come back as numbers.
	cont := make(map[string]string, len(env.Continue))
	for k, v := range env.Continue {
		cont[k] = fmt.Sprint(v)
	}

	return env.Query, cont, nil
}

// A PageExtractor consumes the query payload of one response page and returns
// how many items it yielded.
type PageExtractor func(query json.RawMessage) (int, error)

// QueryPaginated repeats an action=query call, following the continuation
// token named contKey until the server stops returning one or limit items
// have been extracted (limit <= 0 means unbounded). Any transport error or
// extractor error stops pagination for this field and is returned as-is;
// items extracted from earlier pages are kept by the extractor.
func (c *Client) QueryPaginated(ctx context.Context, lang string, params url.Values, contKey string, limit int, extract PageExtractor) error {
	token := ""
	total := 0

	for {
		p := url.Values{}
		for k, vs := range params {
			p[k] = vs
		}
		if token != "" {
			p.Set(contKey, token)
		}

		// Paginated lists are not cached: the continuation chain is only
		// meaningful within one traversal.
		query, cont, err := c.Query(ctx, lang, p, "")
		if err != nil {
			return err
		}

		n, err := extract(query)
		if err != nil {
			return err
		}
		total += n

		if limit > 0 && total >= limit {
			return nil
		}
		token = cont[contKey]
		if token == "" {
			return nil
		}
	}
}

// SinglePage returns the sole entry of a query's pages map, as raw JSON plus
// its page id. Single-title queries (info, pageprops, extracts) all share
// this shape.
func SinglePage(query json.RawMessage) (int64, json.RawMessage, error) {
	var payload struct {
		Pages map[string]json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(query, &payload); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(payload.Pages) == 0 {
		return 0, nil, fmt.Errorf("%w: missing pages map", ErrBadResponse)
	}

	for pid, raw := range payload.Pages {
		id, err := strconv.ParseInt(pid, 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: bad page id %q", ErrBadResponse, pid)
		}
		return id, raw, nil
	}
	return 0, nil, fmt.Errorf("%w: empty pages map", ErrBadResponse)
}
