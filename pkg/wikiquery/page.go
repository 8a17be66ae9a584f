package wikiquery

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"wikistats/pkg/readability"
	"wikistats/pkg/wikipedia"
)

// StringSet is a set of strings that serializes as a sorted JSON array.
type StringSet map[string]struct{}

// NewStringSet creates a set containing the given items.
func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	s.Add(items...)
	return s
}

// Add inserts items into the set.
func (s StringSet) Add(items ...string) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Has reports whether item is in the set.
func (s StringSet) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Len returns the number of items in the set.
func (s StringSet) Len() int { return len(s) }

// Sorted returns the items in lexicographic order.
func (s StringSet) Sorted() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// MarshalJSON serializes the set as a sorted array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON deserializes an array back into a set.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}

// Revision is one entry of a page's edit history.
type Revision struct {
	RevID     int64     `json:"revid"`
	ParentID  int64     `json:"parentid"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Size      int64     `json:"size"`
}

// Assessment is one page-quality rating from a WikiProject.
type Assessment struct {
	Class      string `json:"class"`
	Importance string `json:"importance"`
}

// Creation identifies the first revision of a page.
type Creation struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
}

// Page aggregates everything fetched about one article in one language
// edition. All optional fields start zero-valued and are populated by the
// fetch pipeline; Errors collects per-step failures without aborting the
// run. A Page is owned by the Query that created it and never references it
// back.
type Page struct {
	Title       string    `json:"title"`
	Lang        string    `json:"lang"`
	PID         int64     `json:"pid"` // negative until base info ran
	Description string    `json:"description,omitempty"`
	LastUpdated time.Time `json:"last_updated"`

	LangLinks    StringSet                 `json:"langlinks,omitempty"`
	Backlinks    StringSet                 `json:"backlinks,omitempty"`
	Contributors StringSet                 `json:"contributors,omitempty"`
	Revisions    []Revision                `json:"revisions,omitempty"`
	Pageviews    []wikipedia.PageviewPoint `json:"pageviews,omitempty"`
	ViewsTotal   int64                     `json:"views_total"`
	Assessments  map[string]Assessment     `json:"assessments,omitempty"`
	WikidataItem string                    `json:"wikidata_item,omitempty"`
	Creation     *Creation                 `json:"creation,omitempty"`
	Extract      string                    `json:"extract,omitempty"`
	Readability  *readability.Stats        `json:"readability,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// NewPage creates an unfetched page record.
func NewPage(lang, title string, lastUpdated time.Time) *Page {
	return &Page{
		Title:        title,
		Lang:         lang,
		PID:          -1,
		LastUpdated:  lastUpdated,
		LangLinks:    NewStringSet(),
		Backlinks:    NewStringSet(),
		Contributors: NewStringSet(),
	}
}

// AddLangLinks merges inter-language link titles into the set.
func (p *Page) AddLangLinks(titles ...string) {
	p.LangLinks.Add(titles...)
}

// AddBacklinks merges backlink titles into the set.
func (p *Page) AddBacklinks(titles ...string) {
	p.Backlinks.Add(titles...)
}

// AddContributors merges contributor names into the set.
func (p *Page) AddContributors(names ...string) {
	p.Contributors.Add(names...)
}

// AddRevisions appends revisions in fetch order.
func (p *Page) AddRevisions(revs ...Revision) {
	p.Revisions = append(p.Revisions, revs...)
}

// AddPageviews appends pageview points in fetch order and keeps the running
// total current.
func (p *Page) AddPageviews(points ...wikipedia.PageviewPoint) {
	for _, pt := range points {
		p.ViewsTotal += pt.Views
	}
	p.Pageviews = append(p.Pageviews, points...)
}

// Fail records a non-fatal step failure.
func (p *Page) Fail(step string, err error) {
	p.Errors = append(p.Errors, fmt.Sprintf("%s: %v", step, err))
}
