package wikiquery

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// StepEvent reports one completed pipeline step for one page. Err is nil on
// success; a non-nil Err was also recorded on the page (or, for
// ErrPrecondition, aborted the page's remaining steps).
type StepEvent struct {
	Subject string
	Lang    string
	Title   string
	Step    string
	Err     error
}

// StepCount returns the number of events FetchAll will emit when every page
// runs to completion, so callers can compute percent-complete. Precondition
// aborts emit fewer events.
func (q *Query) StepCount() int {
	pages := 0
	for _, langs := range q.Results {
		pages += len(langs)
	}
	return pages * len(steps)
}

type fetchJob struct {
	subject string
	lang    string
	page    *Page
}

// FetchAll runs the fetch pipeline over every resolved page and streams one
// StepEvent per completed step. Pages are distributed across a bounded pool
// of workers; within one page, steps run sequentially in pipeline order.
//
// The caller must drain the returned channel (or cancel ctx): abandoning it
// without cancelling blocks the workers. Cancelling stops remaining work and
// leaves already-applied steps intact. The channel is closed once all pages
// are done or cancelled.
func (q *Query) FetchAll(ctx context.Context, workers int) <-chan StepEvent {
	if workers <= 0 {
		workers = 1
	}

	var jobs []fetchJob
	subjects := make([]string, 0, len(q.Results))
	for subject := range q.Results {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	for _, subject := range subjects {
		langs := q.Results[subject]
		for _, lang := range sortedPageKeys(langs) {
			jobs = append(jobs, fetchJob{subject: subject, lang: lang, page: langs[lang]})
		}
	}

	slog.Info("fetch pipeline started",
		"query", q.ID, "pages", len(jobs), "steps", len(steps), "workers", workers)

	events := make(chan StepEvent)
	go func() {
		defer close(events)

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, job := range jobs {
			g.Go(func() error {
				q.runPipeline(ctx, job, events)
				return nil
			})
		}
		_ = g.Wait()

		slog.Info("fetch pipeline finished", "query", q.ID)
	}()
	return events
}

// runPipeline applies every step to one page. Each page is owned by exactly
// one invocation, so steps mutate it without locking.
func (q *Query) runPipeline(ctx context.Context, job fetchJob, events chan<- StepEvent) {
	q.Metrics.ObservePage()

	for _, step := range steps {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		err := step.Run(ctx, q, job.page)
		q.Metrics.ObserveStep(step.Name, time.Since(start), err != nil)

		if err != nil {
			job.page.Fail(step.Name, err)
			slog.Warn("fetch step failed",
				"subject", job.subject, "lang", job.lang, "step", step.Name, "error", err)
		}

		select {
		case events <- StepEvent{
			Subject: job.subject,
			Lang:    job.lang,
			Title:   job.page.Title,
			Step:    step.Name,
			Err:     err,
		}:
		case <-ctx.Done():
			return
		}

		if errors.Is(err, ErrPrecondition) {
			return
		}
	}
}

func sortedPageKeys(m map[string]*Page) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
