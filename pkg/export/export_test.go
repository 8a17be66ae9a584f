package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikistats/pkg/config"
	"wikistats/pkg/wikiquery"
)

func testQuery() *wikiquery.Query {
	q := wikiquery.New(nil, config.QueryConfig{TargetLangs: []string{"en"}})

	page := wikiquery.NewPage("en", "Linked data", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	page.PID = 20
	page.AddBacklinks("Semantic Web", "Ontology", "RDF")

	q.Results["Linked data"] = map[string]*wikiquery.Page{"en": page}
	q.Results["Nah mate this page does not exist"] = nil
	return q
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(testQuery())
	require.NoError(t, err)

	var out map[string]map[string]struct {
		PID       int64    `json:"pid"`
		Backlinks []string `json:"backlinks"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	require.Contains(t, out, "Nah mate this page does not exist")
	assert.Nil(t, out["Nah mate this page does not exist"])

	page := out["Linked data"]["en"]
	assert.Equal(t, int64(20), page.PID)
	assert.Equal(t, []string{"Ontology", "RDF", "Semantic Web"}, page.Backlinks)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, Save(path, testQuery()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Len(t, out, 2)
}
