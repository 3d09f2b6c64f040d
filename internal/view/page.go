package view

import "sync"

// FeedItem is one row of the feed region.
type FeedItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PostItem is one row of the post region.
type PostItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
	Bold  bool   `json:"bold"`
}

// FormRegion is the subscription form as displayed.
type FormRegion struct {
	InputValue     string `json:"inputValue"`
	InputReadOnly  bool   `json:"inputReadOnly"`
	InputInvalid   bool   `json:"inputInvalid"`
	Feedback       string `json:"feedback"`
	SubmitDisabled bool   `json:"submitDisabled"`
	ProcessError   string `json:"processError"`
	ProcessSuccess string `json:"processSuccess"`
}

// ModalRegion is the post preview surface.
type ModalRegion struct {
	Open  bool   `json:"open"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link"`
}

// Snapshot is a copy of every region of the page.
type Snapshot struct {
	Form         FormRegion  `json:"form"`
	FeedsHeading string      `json:"feedsHeading"`
	Feeds        []FeedItem  `json:"feeds"`
	PostsHeading string      `json:"postsHeading"`
	Posts        []PostItem  `json:"posts"`
	Modal        ModalRegion `json:"modal"`
	Labels       Labels      `json:"labels"`
}

// Labels are static captions of the page.
type Labels struct {
	Submit  string `json:"submit"`
	Preview string `json:"preview"`
	Close   string `json:"close"`
	More    string `json:"more"`
}

// Page is the in-memory render surface. The renderer writes regions from the
// scheduler goroutine; HTTP handlers read snapshots concurrently.
type Page struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewPage returns an empty page with static labels set.
func NewPage(labels Labels) *Page {
	return &Page{snap: Snapshot{
		Labels: labels,
		Feeds:  []FeedItem{},
		Posts:  []PostItem{},
	}}
}

// Snapshot returns a copy of the page.
func (p *Page) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := p.snap
	out.Feeds = append([]FeedItem{}, p.snap.Feeds...)
	out.Posts = append([]PostItem{}, p.snap.Posts...)
	return out
}

func (p *Page) update(fn func(s *Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.snap)
}
