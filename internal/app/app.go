// Package app turns user intents (typing, submitting, previewing) into
// state writes.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/bryan-buckman/feedsync/internal/loop"
	"github.com/bryan-buckman/feedsync/internal/model"
	"github.com/bryan-buckman/feedsync/internal/rss"
	"github.com/bryan-buckman/feedsync/internal/state"
	"github.com/bryan-buckman/feedsync/internal/validate"
)

var (
	// ErrBusy is returned for input or submission while a submission is in flight.
	ErrBusy = errors.New("submission in progress")
	// ErrPostNotFound is returned when previewing an unknown post.
	ErrPostNotFound = errors.New("post not found")
)

var submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feedsync_submissions_total",
	Help: "Feed submissions by outcome",
}, []string{"outcome"})

// App is the controller. All of its writes run on the scheduler loop.
type App struct {
	store     *state.Store
	loop      loop.Dispatcher
	source    rss.Source
	validator *validate.Validator
	newID     func() string
}

// New creates a controller.
func New(store *state.Store, dispatcher loop.Dispatcher, source rss.Source) *App {
	return &App{
		store:     store,
		loop:      dispatcher,
		source:    source,
		validator: validate.New(),
		newID:     rss.NewID,
	}
}

// WithIDs replaces the post ID generator.
func (a *App) WithIDs(newID func() string) *App {
	a.newID = newID
	return a
}

// Input records a field value and re-validates the form against the
// current feeds. A form left in a terminal state returns to filling.
func (a *App) Input(ctx context.Context, name, value string) error {
	var err error
	if derr := a.loop.Do(ctx, func() { err = a.input(name, value) }); derr != nil {
		return derr
	}
	return err
}

func (a *App) input(name, value string) error {
	form := a.store.Form()
	if form.ProcessState == model.StateSending {
		return ErrBusy
	}
	if err := a.store.Set(state.FieldPath(name), value); err != nil {
		return err
	}
	if form.ProcessState != model.StateFilling {
		if err := a.store.Set(state.PathProcessState, model.StateFilling); err != nil {
			return err
		}
	}
	return a.revalidate()
}

func (a *App) revalidate() error {
	fields := a.store.Form().Fields
	errs := a.validator.Validate(fields, model.FeedLinks(a.store.Feeds()))
	if err := a.store.Set(state.PathValid, len(errs) == 0); err != nil {
		return err
	}
	return a.store.Set(state.PathErrors, errs)
}

// Submit fetches the feed in the link field. It returns once the outcome
// has been written to the store; fetch and parse failures are reported
// through the process state, not as errors. An invalid form is returned
// as model.FieldErrors.
func (a *App) Submit(ctx context.Context) error {
	_, err := a.submit(ctx, nil)
	return err
}

// submit runs prepare and beginSubmit as one loop task, fetches off the
// loop, and writes the outcome. It returns the final process state.
//
// Both loop tasks ignore cancellation of ctx: once the begin task is queued
// it may move the form to sending, and only the finish task moves it out.
// A cancelled ctx still aborts the fetch, which ends as failedNetwork.
func (a *App) submit(ctx context.Context, prepare func() error) (model.ProcessState, error) {
	var (
		link  string
		final model.ProcessState
		err   error
	)
	detached := context.WithoutCancel(ctx)
	begin := func() {
		if prepare != nil {
			if err = prepare(); err != nil {
				return
			}
		}
		link, err = a.beginSubmit()
	}
	if derr := a.loop.Do(detached, begin); derr != nil {
		return "", derr
	}
	if err != nil {
		return "", err
	}

	// The loop stays free for other work while the fetch is outstanding.
	parsed, fetchErr := rss.FetchAndParse(ctx, a.source, link)

	finish := func() {
		final, err = a.finishSubmit(link, parsed, fetchErr)
	}
	if derr := a.loop.Do(detached, finish); derr != nil {
		return "", derr
	}
	return final, err
}

func (a *App) beginSubmit() (string, error) {
	form := a.store.Form()
	if form.ProcessState == model.StateSending {
		return "", ErrBusy
	}
	if errs := a.validator.Validate(form.Fields, model.FeedLinks(a.store.Feeds())); len(errs) > 0 {
		if err := a.store.Set(state.PathValid, false); err != nil {
			return "", err
		}
		if err := a.store.Set(state.PathErrors, errs); err != nil {
			return "", err
		}
		return "", errs
	}
	if err := a.store.Set(state.PathProcessState, model.StateSending); err != nil {
		return "", err
	}
	return strings.TrimSpace(form.Fields[model.FieldLink]), nil
}

func (a *App) finishSubmit(link string, parsed *rss.ParsedFeed, fetchErr error) (model.ProcessState, error) {
	logger := log.WithField("feed", link)

	if fetchErr != nil {
		var perr *rss.ParseError
		next := model.StateFailedNetwork
		if errors.As(fetchErr, &perr) {
			next = model.StateFailed
		}
		submissions.WithLabelValues(string(next)).Inc()
		logger.Warnf("Submit failed: %v", fetchErr)
		return next, a.store.Set(state.PathProcessState, next)
	}

	// The link is kept as submitted so refreshes fetch the same URL;
	// duplicates are detected on the normalized form.
	feed := model.Feed{
		Link:        link,
		Title:       parsed.Title,
		Description: parsed.Description,
	}
	feeds := append(a.store.Feeds(), feed)
	if err := a.store.Set(state.PathFeeds, feeds); err != nil {
		return "", err
	}

	merged, added := rss.MergePosts(a.store.Posts(), parsed.Items, a.newID)
	if len(added) > 0 {
		if err := a.store.Set(state.PathPosts, merged); err != nil {
			return "", err
		}
	}

	submissions.WithLabelValues(string(model.StateFinished)).Inc()
	logger.Infof("Added feed %q with %d posts", feed.Title, len(added))

	if err := a.store.Set(state.PathProcessState, model.StateFinished); err != nil {
		return "", err
	}
	return model.StateFinished, a.store.Set(state.FieldPath(model.FieldLink), nil)
}

// OpenPost marks the post read (once) and shows it in the preview.
func (a *App) OpenPost(ctx context.Context, id string) error {
	var err error
	if derr := a.loop.Do(ctx, func() { err = a.openPost(id) }); derr != nil {
		return derr
	}
	return err
}

func (a *App) openPost(id string) error {
	posts := a.store.Posts()
	idx := -1
	for i, p := range posts {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	if !posts[idx].Read {
		posts[idx].Read = true
		if err := a.store.Set(state.PathPosts, posts); err != nil {
			return err
		}
	}
	return a.store.Set(state.PathModalItem, posts[idx])
}

// ClosePreview clears the preview.
func (a *App) ClosePreview(ctx context.Context) error {
	var err error
	if derr := a.loop.Do(ctx, func() { err = a.store.Set(state.PathModalItem, nil) }); derr != nil {
		return derr
	}
	return err
}

// ImportResult reports the outcome of one imported URL.
type ImportResult struct {
	URL   string             `json:"url"`
	State model.ProcessState `json:"state,omitempty"`
	Error string             `json:"error,omitempty"`
}

// Import submits each URL in turn through the regular input and submit
// path, so imported feeds are validated and deduplicated like typed ones.
// Typing the URL and starting its submission happen in one loop task, so
// concurrent input cannot swap the link in between.
func (a *App) Import(ctx context.Context, urls []string) ([]ImportResult, error) {
	results := make([]ImportResult, 0, len(urls))
	for _, u := range urls {
		res := ImportResult{URL: u}
		final, err := a.submit(ctx, func() error { return a.input(model.FieldLink, u) })
		var ferrs model.FieldErrors
		switch {
		case errors.As(err, &ferrs):
			res.Error = ferrs[model.FieldLink].Key
		case err != nil:
			return results, err
		default:
			res.State = final
		}
		results = append(results, res)
	}
	return results, nil
}
