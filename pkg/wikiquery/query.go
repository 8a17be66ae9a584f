// Package wikiquery resolves user-supplied targets into per-language page
// identities and drives the metadata fetch pipeline over them.
package wikiquery

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"wikistats/pkg/config"
	"wikistats/pkg/metrics"
	"wikistats/pkg/wikipedia"
)

// Query tracks one collection run: the raw targets it was given, the
// languages it covers, the candidate titles still awaiting resolution, and
// the resolved page records. Results maps canonical subject name to language
// to page; a nil language map means the subject was not found anywhere.
type Query struct {
	ID          uuid.UUID
	LastUpdated time.Time
	Metrics     *metrics.Metrics

	// Results is populated by Resolve and filled in by FetchAll. The Query
	// owns every Page in it.
	Results map[string]map[string]*Page

	client *wikipedia.Client
	cfg    config.QueryConfig

	targets     StringSet
	targetLangs StringSet
	linksToFind map[string]StringSet
}

// New creates an empty query with the configured target languages.
// LastUpdated anchors the revision and pageview windows; it defaults to the
// current UTC day.
func New(client *wikipedia.Client, cfg config.QueryConfig) *Query {
	return &Query{
		ID:          uuid.New(),
		LastUpdated: time.Now().UTC().Truncate(24 * time.Hour),
		Results:     make(map[string]map[string]*Page),
		client:      client,
		cfg:         cfg,
		targets:     NewStringSet(),
		targetLangs: NewStringSet(cfg.TargetLangs...),
		linksToFind: make(map[string]StringSet),
	}
}

// Targets returns the raw targets added so far, sorted.
func (q *Query) Targets() []string { return q.targets.Sorted() }

// TargetLangs returns the configured language codes, sorted.
func (q *Query) TargetLangs() []string { return q.targetLangs.Sorted() }

// PendingLinks returns the titles awaiting resolution for one language.
func (q *Query) PendingLinks(lang string) []string {
	if s, ok := q.linksToFind[lang]; ok {
		return s.Sorted()
	}
	return nil
}

// AddTargets unions raw targets into the query. Only targets not seen before
// are parsed: labeled links go straight into their language bucket, bare
// titles are fanned out to every target language. Re-adding a known target
// is a no-op.
func (q *Query) AddTargets(targets ...string) {
	var unlabeled []string
	for _, raw := range targets {
		if q.targets.Has(raw) {
			continue
		}
		q.targets.Add(raw)

		link, ok := ParseTarget(raw)
		if !ok {
			slog.Debug("discarding unparseable target", "target", raw)
			continue
		}
		if link.Lang == "" {
			unlabeled = append(unlabeled, link.Title)
			continue
		}
		q.addLink(link.Lang, link.Title)
	}
	q.fanOut(unlabeled, q.targetLangs.Sorted())
}

// AddLangs unions language codes into the target set. Bare titles added
// earlier are re-fanned out so they pick up the new languages; already
// present (lang, title) pairs are unaffected.
func (q *Query) AddLangs(langs ...string) {
	var added []string
	for _, lang := range langs {
		if q.targetLangs.Has(lang) {
			continue
		}
		q.targetLangs.Add(lang)
		added = append(added, lang)
	}
	if len(added) == 0 {
		return
	}
	sort.Strings(added)

	var unlabeled []string
	for _, raw := range q.targets.Sorted() {
		if link, ok := ParseTarget(raw); ok && link.Lang == "" {
			unlabeled = append(unlabeled, link.Title)
		}
	}
	// Fan out only into the new languages: candidates already resolved for
	// the old languages must not be queued a second time.
	q.fanOut(unlabeled, added)
}

func (q *Query) fanOut(titles, langs []string) {
	for _, lang := range langs {
		for _, title := range titles {
			q.addLink(lang, title)
		}
	}
}

func (q *Query) addLink(lang, title string) {
	if q.linksToFind[lang] == nil {
		q.linksToFind[lang] = NewStringSet()
	}
	q.linksToFind[lang].Add(title)
}

// Resolve consumes every pending candidate title: one batched language-link
// lookup per language bucket, in sorted bucket order. Found subjects are
// registered in Results with one Page per covered target language; titles
// the API reports missing map to nil. Cross-language duplicates merge
// first-wins: a found subject whose variant titles include an already
// registered found subject is dropped. A not-found placeholder never masks a
// later find — the found registration supersedes it.
//
// All candidates are consumed exactly once, success or failure — linksToFind
// is empty afterwards and failed batches are not retried.
func (q *Query) Resolve(ctx context.Context) (found map[string]map[string]string, notFound map[string]error, err error) {
	found = make(map[string]map[string]string)
	notFound = make(map[string]error)

	langs := make([]string, 0, len(q.linksToFind))
	for lang := range q.linksToFind {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	defer func() { q.linksToFind = make(map[string]StringSet) }()

	for _, lang := range langs {
		titles := q.linksToFind[lang].Sorted()
		slog.Debug("resolving candidates", "query", q.ID, "lang", lang, "count", len(titles))

		pages, missing, ferr := q.client.FindPages(ctx, lang, titles)
		if ferr != nil {
			if errors.Is(ferr, context.Canceled) || errors.Is(ferr, context.DeadlineExceeded) {
				return nil, nil, ferr
			}
			// Batch failures are terminal for these candidates
			slog.Warn("lookup batch failed", "lang", lang, "error", ferr)
			for _, title := range titles {
				q.registerNotFound(displayTitle(title), notFound, ferr)
			}
			continue
		}

		for _, title := range missing {
			q.registerNotFound(title, notFound, ErrNotFound)
		}

		for _, fp := range pages {
			variants := map[string]string{lang: fp.Title}
			for _, ll := range fp.LangLinks {
				// The query language's entry is the returned title itself
				if ll.Lang != lang && q.targetLangs.Has(ll.Lang) {
					variants[ll.Lang] = ll.Title
				}
			}

			if q.registered(variants) {
				slog.Debug("merging cross-language duplicate", "title", fp.Title, "lang", lang)
				continue
			}

			// A subject found here supersedes not-found placeholders left by
			// earlier buckets for any of its variant titles.
			for _, title := range variants {
				if existing, ok := q.Results[title]; ok && existing == nil {
					delete(q.Results, title)
					delete(notFound, title)
				}
			}

			q.Results[fp.Title] = make(map[string]*Page)
			found[fp.Title] = variants
			for _, vlang := range sortedKeys(variants) {
				page := NewPage(vlang, variants[vlang], q.LastUpdated)
				for other, title := range variants {
					if other != vlang {
						page.AddLangLinks(other + ":" + title)
					}
				}
				q.Results[fp.Title][vlang] = page
			}
		}
	}

	return found, notFound, nil
}

// registered reports whether any variant title is already a subject key with
// a found page set. Nil entries don't count: an earlier not-found placeholder
// must not mask the same subject found in a later bucket.
func (q *Query) registered(variants map[string]string) bool {
	for _, title := range variants {
		if pages, ok := q.Results[title]; ok && pages != nil {
			return true
		}
	}
	return false
}

func (q *Query) registerNotFound(title string, notFound map[string]error, err error) {
	if _, ok := q.Results[title]; ok {
		return
	}
	q.Results[title] = nil
	notFound[title] = err
}

// displayTitle converts a candidate title to the display form the API uses
// for subject keys.
func displayTitle(title string) string {
	return strings.ReplaceAll(title, "_", " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
