package wikiquery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipelineServer stubs every endpoint the fetch pipeline hits, serving the
// same article regardless of language edition.
func pipelineServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		qp := r.URL.Query()
		switch {
		case qp.Get("prop") == "langlinks":
			fmt.Fprint(w, `{"query":{"pages":{"123":{"pageid":123,"title":"H. P. Lovecraft","langlinks":[
				{"lang":"en","*":"H. P. Lovecraft"},
				{"lang":"fr","*":"H. P. Lovecraft"},
				{"lang":"it","*":"Howard Phillips Lovecraft"}]}}}}`)
		case qp.Get("prop") == "info":
			fmt.Fprint(w, `{"query":{"pages":{"123":{"pageid":123,"title":"H. P. Lovecraft"}}}}`)
		case qp.Get("list") == "backlinks":
			fmt.Fprint(w, `{"query":{"backlinks":[{"title":"Cthulhu"},{"title":"Providence"}]}}`)
		case qp.Get("prop") == "pageassessments":
			fmt.Fprint(w, `{"query":{"pages":{"123":{"pageassessments":{"Horror":{"class":"B","importance":"High"}}}}}}`)
		case qp.Get("prop") == "pageprops|revisions":
			fmt.Fprint(w, `{"query":{"pages":{"123":{
				"pageprops":{"wikibase_item":"Q169566"},
				"revisions":[{"timestamp":"2004-07-20T09:00:00Z","user":"Creator"}]}}}}`)
		case qp.Get("prop") == "contributors":
			assert.NotEmpty(t, qp.Get("pageids"))
			fmt.Fprint(w, `{"query":{"pages":{"123":{"contributors":[{"name":"Alice"},{"name":"Bob"}]}}}}`)
		case qp.Get("prop") == "revisions":
			fmt.Fprint(w, `{"query":{"pages":{"123":{"revisions":[
				{"revid":2,"parentid":1,"timestamp":"2026-08-01T10:00:00Z","user":"Alice","size":2048}]}}}}`)
		case qp.Get("prop") == "extracts":
			fmt.Fprint(w, `{"query":{"pages":{"123":{"extract":"<p>Lovecraft wrote weird fiction in Providence.</p>"}}}}`)
		default:
			t.Errorf("unexpected api query: %s", r.URL.RawQuery)
		}
	})
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"description":"American writer"}`)
	})
	mux.HandleFunc("/metrics/pageviews/per-article/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[
			{"timestamp":"2026080100","views":100},
			{"timestamp":"2026080200","views":50}]}`)
	})
	return httptest.NewServer(mux)
}

func TestFetchAll_EndToEnd(t *testing.T) {
	svr := pipelineServer(t)
	defer svr.Close()

	q := newTestQuery(svr.URL)
	q.AddTargets("https://de.wikipedia.org/wiki/H._P._Lovecraft")

	found, notFound, err := q.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Empty(t, notFound)

	pages := q.Results["H. P. Lovecraft"]
	require.Len(t, pages, 3) // de from the query language, en/fr via langlinks

	var events []StepEvent
	for ev := range q.FetchAll(context.Background(), 2) {
		assert.NoError(t, ev.Err, "%s/%s %s", ev.Lang, ev.Title, ev.Step)
		events = append(events, ev)
	}
	assert.Len(t, events, q.StepCount())

	for lang, p := range pages {
		assert.Empty(t, p.Errors, lang)
		assert.Equal(t, int64(123), p.PID)
		assert.Equal(t, "American writer", p.Description)
		assert.Equal(t, []string{"Cthulhu", "Providence"}, p.Backlinks.Sorted())
		assert.Equal(t, []string{"Alice", "Bob"}, p.Contributors.Sorted())
		assert.Equal(t, "B", p.Assessments["Horror"].Class)
		assert.Equal(t, "Q169566", p.WikidataItem)
		require.NotNil(t, p.Creation)
		assert.Equal(t, "Creator", p.Creation.User)
		require.Len(t, p.Revisions, 1)
		assert.Equal(t, int64(2), p.Revisions[0].RevID)
		assert.Equal(t, int64(150), p.ViewsTotal)
		assert.Equal(t, "Lovecraft wrote weird fiction in Providence.", p.Extract)
		require.NotNil(t, p.Readability)
		assert.Equal(t, 6, p.Readability.Words)
	}
}

func TestFetchAll_PreconditionAbortsPage(t *testing.T) {
	// Every api call returns a response without a query object, so base info
	// never sets the page id and the contributors step hits its precondition.
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "summary") {
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprint(w, `{"batchcomplete":""}`)
	}))
	defer svr.Close()

	q := newTestQuery(svr.URL)
	q.Results["Broken"] = map[string]*Page{"en": NewPage("en", "Broken", q.LastUpdated)}

	var events []StepEvent
	for ev := range q.FetchAll(context.Background(), 1) {
		events = append(events, ev)
	}

	// base_info through contributors ran, then the page was abandoned
	require.Len(t, events, 5)
	assert.Equal(t, "contributors", events[4].Step)
	assert.ErrorIs(t, events[4].Err, ErrPrecondition)

	p := q.Results["Broken"]["en"]
	assert.Equal(t, int64(-1), p.PID)
	assert.Len(t, p.Errors, 5)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	q := newTestQuery("")
	q.Results["X"] = map[string]*Page{"en": NewPage("en", "X", q.LastUpdated)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count := 0
	for range q.FetchAll(ctx, 1) {
		count++
	}
	assert.Zero(t, count)
}

func TestStepCount(t *testing.T) {
	q := newTestQuery("")
	q.Results["A"] = map[string]*Page{
		"en": NewPage("en", "A", q.LastUpdated),
		"de": NewPage("de", "A", q.LastUpdated),
	}
	q.Results["B"] = nil // not found, nothing to fetch

	assert.Equal(t, 2*len(StepNames()), q.StepCount())
}

func TestStepNames_Order(t *testing.T) {
	names := StepNames()
	require.Len(t, names, 8)
	assert.Equal(t, "base_info", names[0])
	assert.Equal(t, "extended_info", names[3])
	assert.Equal(t, "extract", names[7])
}
