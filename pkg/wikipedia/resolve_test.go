package wikipedia

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

func TestFindPages_SplitsFoundAndMissing(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "langlinks", r.URL.Query().Get("prop"))
		assert.Equal(t, "1", r.URL.Query().Get("redirects"))

		fmt.Fprint(w, `{"query":{"pages":{
			"4002982":{"pageid":4002982,"title":"Linked data","langlinks":[
				{"lang":"de","*":"Linked Open Data"},
				{"lang":"fr","*":"Web des données"}]},
			"-1":{"title":"Nah mate this page does not exist","missing":""}
		}}}`)
	}))
	defer svr.Close()

	c := newTestClient(svr.URL)

	found, missing, err := c.FindPages(context.Background(), "en", []string{"Linked_data", "Nah mate this page does not exist"})
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, int64(4002982), found[0].PageID)
	assert.Equal(t, "Linked data", found[0].Title)
	assert.Len(t, found[0].LangLinks, 2)
	assert.Equal(t, []string{"Nah mate this page does not exist"}, missing)
}

func TestFindPages_BatchesTitles(t *testing.T) {
	var batchSizes []int
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles := strings.Split(r.URL.Query().Get("titles"), "|")
		batchSizes = append(batchSizes, len(titles))
		fmt.Fprint(w, `{"query":{"pages":{}}}`)
	}))
	defer svr.Close()

	c := newTestClient(svr.URL)

	titles := make([]string, 120)
	for i := range titles {
		titles[i] = fmt.Sprintf("Title %d", i)
	}

	_, _, err := c.FindPages(context.Background(), "en", titles)
	require.NoError(t, err)

	assert.Equal(t, []int{50, 50, 20}, batchSizes)
}

func TestFindPages_MissingPagesMapIsError(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"normalized":[]}}`)
	}))
	defer svr.Close()

	c := newTestClient(svr.URL)

	_, _, err := c.FindPages(context.Background(), "en", []string{"Anything"})
	assert.ErrorIs(t, err, ErrBadResponse)
}
