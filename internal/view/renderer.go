// Package view maps state changes onto the page regions they affect.
package view

import (
	"fmt"

	"github.com/bryan-buckman/feedsync/internal/i18n"
	"github.com/bryan-buckman/feedsync/internal/model"
	"github.com/bryan-buckman/feedsync/internal/state"
)

// Renderer is the store subscriber that keeps the page in sync. Its
// actions only touch the page; they never write to the store.
type Renderer struct {
	page *Page
	t    i18n.Translator
}

// NewRenderer creates a renderer drawing onto page.
func NewRenderer(page *Page, t i18n.Translator) *Renderer {
	return &Renderer{page: page, t: t}
}

// Attach subscribes the renderer to the store and draws the current state.
func (r *Renderer) Attach(s *state.Store) {
	snap := s.Snapshot()
	r.page.update(func(p *Snapshot) {
		p.Form.SubmitDisabled = !snap.Form.Valid
		p.Form.InputValue = snap.Form.Fields[model.FieldLink]
	})
	if len(snap.Feeds) > 0 {
		r.renderFeeds(snap.Feeds)
	}
	if len(snap.Posts) > 0 {
		r.renderPosts(snap.Posts)
	}
	s.Subscribe(r.Handle)
}

// Handle applies one event. Unknown kinds and process states panic.
func (r *Renderer) Handle(ev state.Event) {
	switch ev.Kind {
	case state.ProcessStateChanged:
		r.renderProcessState(ev.Value.(model.ProcessState))
	case state.ValidityChanged:
		valid := ev.Value.(bool)
		r.page.update(func(p *Snapshot) { p.Form.SubmitDisabled = !valid })
	case state.ErrorsChanged:
		r.renderErrors(ev.Value.(model.FieldErrors))
	case state.FieldChanged:
		r.renderField(ev.Field, ev.Value)
	case state.FeedsChanged:
		r.renderFeeds(ev.Value.([]model.Feed))
	case state.PostsChanged:
		r.renderPosts(ev.Value.([]model.Post))
	case state.ModalChanged:
		r.renderModal(ev.Value.(*model.Post))
	default:
		panic(fmt.Sprintf("view: unhandled event %s at %q", ev.Kind, ev.Path))
	}
}

func (r *Renderer) renderProcessState(ps model.ProcessState) {
	r.page.update(func(p *Snapshot) {
		p.Form.ProcessError = ""
		p.Form.ProcessSuccess = ""

		switch ps {
		case model.StateFilling:
			p.Form.SubmitDisabled = false
			p.Form.InputReadOnly = false
		case model.StateSending:
			p.Form.SubmitDisabled = true
			p.Form.InputReadOnly = true
		case model.StateFinished:
			p.Form.SubmitDisabled = false
			p.Form.InputReadOnly = false
			p.Form.InputValue = ""
			p.Form.ProcessSuccess = r.t.T(i18n.KeyLoaded)
		case model.StateFailed:
			p.Form.SubmitDisabled = false
			p.Form.InputReadOnly = false
			p.Form.ProcessError = r.t.T(i18n.KeyInvalidRSS)
		case model.StateFailedNetwork:
			p.Form.SubmitDisabled = false
			p.Form.InputReadOnly = false
			p.Form.ProcessError = r.t.T(i18n.KeyNetworkProblems)
		default:
			panic(fmt.Sprintf("view: unknown process state %q", ps))
		}
	})
}

func (r *Renderer) renderErrors(errs model.FieldErrors) {
	r.page.update(func(p *Snapshot) {
		p.Form.InputInvalid = false
		p.Form.Feedback = ""
		if e, ok := errs[model.FieldLink]; ok {
			p.Form.InputInvalid = true
			p.Form.Feedback = r.t.T(e.Key)
		}
	})
}

func (r *Renderer) renderField(name string, value any) {
	if name != model.FieldLink {
		return
	}
	text, _ := value.(string)
	r.page.update(func(p *Snapshot) { p.Form.InputValue = text })
}

func (r *Renderer) renderFeeds(feeds []model.Feed) {
	items := make([]FeedItem, len(feeds))
	for i, f := range feeds {
		items[i] = FeedItem{Title: f.Title, Description: f.Description}
	}
	r.page.update(func(p *Snapshot) {
		p.FeedsHeading = r.t.T(i18n.KeyFeeds)
		p.Feeds = items
	})
}

func (r *Renderer) renderPosts(posts []model.Post) {
	items := make([]PostItem, len(posts))
	for i, post := range posts {
		items[i] = PostItem{ID: post.ID, Title: post.Title, Link: post.Link, Bold: !post.Read}
	}
	r.page.update(func(p *Snapshot) {
		p.PostsHeading = r.t.T(i18n.KeyPosts)
		p.Posts = items
	})
}

func (r *Renderer) renderModal(post *model.Post) {
	r.page.update(func(p *Snapshot) {
		if post == nil {
			p.Modal = ModalRegion{}
			return
		}
		p.Modal = ModalRegion{
			Open:  true,
			Title: post.Title,
			Body:  post.Description,
			Link:  post.Link,
		}
	})
}

// LabelsFrom translates the static captions of the page.
func LabelsFrom(t i18n.Translator) Labels {
	return Labels{
		Submit:  t.T(i18n.KeyAdd),
		Preview: t.T(i18n.KeyPreview),
		Close:   t.T(i18n.KeyClose),
		More:    t.T(i18n.KeyReadMore),
	}
}
