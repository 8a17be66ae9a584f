package wikipedia

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikistats/pkg/cache"
	"wikistats/pkg/request"
	"wikistats/pkg/tracker"
)

func newMockedClient() (*Client, *httpmock.MockTransport) {
	mt := httpmock.NewMockTransport()
	r := request.New(cache.NullCache{}, tracker.New(), testConfig())
	r.SetTransport(mt)
	return NewClient(r), mt
}

func TestSummary(t *testing.T) {
	c, mt := newMockedClient()
	mt.RegisterResponder("GET",
		"https://de.wikipedia.org/api/rest_v1/page/summary/H._P._Lovecraft",
		httpmock.NewStringResponder(200, `{"title":"H. P. Lovecraft","description":"US-amerikanischer Schriftsteller"}`))

	desc, err := c.Summary(context.Background(), "de", "H. P. Lovecraft")
	require.NoError(t, err)
	assert.Equal(t, "US-amerikanischer Schriftsteller", desc)
}

func TestSummary_NoDescription(t *testing.T) {
	c, mt := newMockedClient()
	mt.RegisterResponder("GET",
		"https://en.wikipedia.org/api/rest_v1/page/summary/Obscure_page",
		httpmock.NewStringResponder(200, `{"title":"Obscure page"}`))

	desc, err := c.Summary(context.Background(), "en", "Obscure page")
	require.NoError(t, err)
	assert.Empty(t, desc)
}

func TestPageviewsDaily(t *testing.T) {
	c, mt := newMockedClient()
	mt.RegisterResponder("GET",
		"https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article/en.wikipedia/all-access/all-agents/Linked_data/daily/2024010100/2024010300",
		httpmock.NewStringResponder(200, `{"items":[
			{"timestamp":"2024010100","views":10},
			{"timestamp":"2024010200","views":20},
			{"timestamp":"2024010300","views":5}]}`))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	points, err := c.PageviewsDaily(context.Background(), "en", "Linked data", start, end)
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, int64(10), points[0].Views)
	assert.Equal(t, start, points[0].Timestamp)
	assert.Equal(t, int64(5), points[2].Views)
}

func TestPageviewsDaily_MissingItems(t *testing.T) {
	c, mt := newMockedClient()
	mt.RegisterResponder("GET",
		`=~pageviews/per-article`,
		httpmock.NewStringResponder(200, `{"type":"about:blank","title":"Not found."}`))

	_, err := c.PageviewsDaily(context.Background(), "en", "Nope",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrBadResponse)
}
