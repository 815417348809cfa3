// Package tui is the terminal game browser. Its bubbletea Update loop owns
// one pager.List per feed tab; fetches run as commands and come back as
// messages.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/domain"
	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/pager"
	"github.com/timmy/rawgdex/internal/rawg"
)

const (
	defaultDebounce     = 500 * time.Millisecond
	defaultFetchTimeout = 15 * time.Second
	defaultWidth        = 100
	defaultHeight       = 30
	// loadMoreThreshold is how close to the end the cursor gets before the
	// next page is requested.
	loadMoreThreshold = 3
	// chromeLines are the tab bar, filter line, status line and help line.
	chromeLines = 5
	minRows     = 3
)

// Source supplies the game feeds and the genre list.
type Source interface {
	GameFeed(id string) (catalog.Feed[rawg.GameSummary], error)
	AllGenres(ctx context.Context) ([]rawg.Genre, error)
}

// DetailSource loads the detail view of one game.
type DetailSource interface {
	Get(ctx context.Context, id int) (*domain.GameView, error)
}

// Options configures the browser.
type Options struct {
	// Feeds lists the tabs in order. Only game feeds are accepted.
	Feeds []string
	// Debounce delays a search until typing pauses.
	Debounce     time.Duration
	FetchTimeout time.Duration
	Logger       *logger.Logger
}

// DefaultFeeds are the tabs shown when Options.Feeds is empty.
func DefaultFeeds() []string {
	return []string{
		catalog.FeedNewReleases,
		catalog.FeedPopular,
		catalog.FeedNewest,
		catalog.FeedTop,
		catalog.FeedSearch,
	}
}

type tab struct {
	desc   catalog.Descriptor
	fetch  pager.FetchFunc[rawg.GameSummary, catalog.Filter]
	list   *pager.List[rawg.GameSummary, catalog.Filter]
	cursor int
	offset int
}

func (t *tab) honors(field string) bool {
	return slices.Contains(t.desc.Filters, field)
}

type viewMode int

const (
	modeList viewMode = iota
	modeDetail
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx     context.Context
	source  Source
	details DetailSource
	opts    Options
	log     *logger.Logger

	tabs   []*tab
	active int

	genres    []rawg.Genre
	genresErr error

	search    textinput.Model
	searchSeq int

	spinner  spinner.Model
	help     help.Model
	viewport viewport.Model

	mode          viewMode
	detailID      int
	detailName    string
	detail        *domain.GameView
	detailErr     string
	detailLoading bool
	detailSeq     int

	width  int
	height int
}

// NewModel builds the browser over source. details may be nil, which
// disables the detail pane.
// Parameters:
//   - ctx: parent context of every fetch.
//   - source: feed catalog.
//   - details: game detail loader.
//   - opts: tabs, debounce and timeouts.
//
// Returns:
//   - *Model: model ready for tea.NewProgram.
//   - error: when a tab names an unknown or non-game feed.
func NewModel(ctx context.Context, source Source, details DetailSource, opts Options) (*Model, error) {
	if len(opts.Feeds) == 0 {
		opts.Feeds = DefaultFeeds()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetDefault()
	}

	m := &Model{
		ctx:      ctx,
		source:   source,
		details:  details,
		opts:     opts,
		log:      opts.Logger.WithField(logger.FieldComponent, "tui"),
		help:     help.New(),
		viewport: viewport.New(defaultWidth, defaultHeight-chromeLines),
		width:    defaultWidth,
		height:   defaultHeight,
	}

	for _, id := range opts.Feeds {
		feed, err := source.GameFeed(id)
		if err != nil {
			return nil, fmt.Errorf("tab %q: %w", id, err)
		}
		m.tabs = append(m.tabs, &tab{
			desc:  feed.Descriptor,
			fetch: feed.Fetch,
			list:  pager.NewList[rawg.GameSummary](catalog.Filter{}, pager.WithMessages(rawg.UserMessage)),
		})
	}

	m.search = textinput.New()
	m.search.Placeholder = "search games"
	m.search.Prompt = "/ "
	m.search.CharLimit = 80

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = selectedStyle

	return m, nil
}

// Init loads the first tab and the genre list.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.ensureLoaded(m.active), m.loadGenres())
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = m.rows()
		if m.detail != nil {
			m.viewport.SetContent(renderDetail(m.detail, m.width))
		}
		m.clampScroll()
		return m, m.maybeLoadMore()

	case pageMsg:
		return m, m.handlePage(msg)

	case genresMsg:
		m.genres, m.genresErr = msg.genres, msg.err
		if msg.err != nil {
			m.log.Warnf("Loading genres failed: %v", msg.err)
		}
		return m, nil

	case detailMsg:
		m.handleDetail(msg)
		return m, nil

	case searchDebounceMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		return m, m.applySearch()

	case spinner.TickMsg:
		if !m.loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.search.Focused() {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.search.Focused() {
		return m.handleSearchKey(msg)
	}
	if m.mode == modeDetail {
		return m.handleDetailKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		return m, m.move(-1)
	case key.Matches(msg, keys.Down):
		return m, m.move(1)
	case key.Matches(msg, keys.PageUp):
		return m, m.move(-m.rows())
	case key.Matches(msg, keys.PageDown):
		return m, m.move(m.rows())
	case key.Matches(msg, keys.Top):
		return m, m.move(-m.current().list.Len())
	case key.Matches(msg, keys.Bottom):
		return m, m.move(m.current().list.Len())
	case key.Matches(msg, keys.NextFeed):
		return m, m.switchTab(1)
	case key.Matches(msg, keys.PrevFeed):
		return m, m.switchTab(-1)
	case key.Matches(msg, keys.NextGenre):
		return m, m.cycleGenre(1)
	case key.Matches(msg, keys.PrevGenre):
		return m, m.cycleGenre(-1)
	case key.Matches(msg, keys.Search):
		return m, m.focusSearch()
	case key.Matches(msg, keys.Open):
		return m, m.openDetail()
	case key.Matches(msg, keys.Retry):
		return m, m.retry()
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		m.search.Blur()
		m.searchSeq++
		return m, m.applySearch()
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	m.searchSeq++
	seq := m.searchSeq
	return m, tea.Batch(cmd, tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{seq: seq}
	}))
}

func (m *Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Back):
		m.mode = modeList
		m.detailLoading = false
		m.detailSeq++
		return m, nil
	case key.Matches(msg, keys.Retry):
		if m.detailErr != "" {
			return m, m.loadDetail(m.detailID, m.detailName)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) current() *tab {
	return m.tabs[m.active]
}

func (m *Model) searchTab() (int, bool) {
	for i, t := range m.tabs {
		if t.honors("query") {
			return i, true
		}
	}
	return 0, false
}

// rows is the number of list rows that fit on screen.
func (m *Model) rows() int {
	return max(m.height-chromeLines, minRows)
}

func (m *Model) loading() bool {
	if m.detailLoading {
		return true
	}
	for _, t := range m.tabs {
		if t.list.Loading() {
			return true
		}
	}
	return false
}

// dispatch turns a list request into a fetch command for tab idx.
func (m *Model) dispatch(idx int, req pager.Request[catalog.Filter]) tea.Cmd {
	fetch := m.tabs[idx].fetch
	parent, timeout := m.ctx, m.opts.FetchTimeout
	log := m.log.WithField(logger.FieldFeed, m.tabs[idx].desc.ID)
	fetchCmd := func() tea.Msg {
		ctx, cancel := context.WithTimeout(log.WithContext(parent), timeout)
		defer cancel()
		start := time.Now()
		page, err := fetch(ctx, req.Filter, req.Cursor)
		return pageMsg{
			tab:     idx,
			resp:    pager.Response[rawg.GameSummary, catalog.Filter]{Request: req, Page: page, Err: err},
			elapsed: time.Since(start),
		}
	}
	return tea.Batch(m.spinner.Tick, fetchCmd)
}

func (m *Model) ensureLoaded(idx int) tea.Cmd {
	t := m.tabs[idx]
	if t.list.Epoch() > 0 {
		return nil
	}
	req, ok := t.list.BeginReload()
	if !ok {
		return nil
	}
	return m.dispatch(idx, req)
}

func (m *Model) loadGenres() tea.Cmd {
	ctx, timeout, source := m.ctx, m.opts.FetchTimeout, m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		genres, err := source.AllGenres(ctx)
		return genresMsg{genres: genres, err: err}
	}
}

func (m *Model) handlePage(msg pageMsg) tea.Cmd {
	if msg.tab < 0 || msg.tab >= len(m.tabs) {
		return nil
	}
	t := m.tabs[msg.tab]
	req := msg.resp.Request
	outcome := t.list.Apply(msg.resp)

	entry := logger.With(logger.Fields{
		logger.FieldFeed:    t.desc.ID,
		logger.FieldOutcome: outcome.String(),
		"cursor":            req.Cursor.String(),
	}).WithDuration(msg.elapsed.Milliseconds())
	switch outcome {
	case pager.OutcomeApplied:
		entry.WithCount(len(msg.resp.Page.Items)).Debug(m.log.WithContext(m.ctx), "Page applied")
		if req.Kind == pager.KindInitial {
			t.cursor, t.offset = 0, 0
		}
	case pager.OutcomeFailed:
		entry.Warn(m.log.WithContext(m.ctx), "Page fetch failed: %v", msg.resp.Err)
		return nil
	case pager.OutcomeStale:
		entry.Debug(m.log.WithContext(m.ctx), "Dropped stale page of epoch %d", req.Epoch)
		return nil
	}

	if msg.tab != m.active {
		return nil
	}
	m.clampScroll()
	return m.maybeLoadMore()
}

// maybeLoadMore requests the next page of the active tab once the cursor is
// near the end or the end of the list is on screen. A failed load is not
// retried automatically.
func (m *Model) maybeLoadMore() tea.Cmd {
	if m.mode != modeList {
		return nil
	}
	t := m.current()
	n := t.list.Len()
	if t.list.Err() != nil || t.list.Loading() {
		return nil
	}
	if t.cursor < n-loadMoreThreshold && t.offset+m.rows() < n {
		return nil
	}
	req, ok := t.list.BeginLoadMore()
	if !ok {
		return nil
	}
	return m.dispatch(m.active, req)
}

func (m *Model) move(delta int) tea.Cmd {
	t := m.current()
	t.cursor += delta
	m.clampScroll()
	return m.maybeLoadMore()
}

// clampScroll keeps the cursor inside the list and on screen.
func (m *Model) clampScroll() {
	t := m.current()
	n := t.list.Len()
	t.cursor = min(max(t.cursor, 0), max(n-1, 0))
	rows := m.rows()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+rows {
		t.offset = t.cursor - rows + 1
	}
	t.offset = min(max(t.offset, 0), max(n-rows, 0))
}

func (m *Model) switchTab(delta int) tea.Cmd {
	n := len(m.tabs)
	m.active = ((m.active+delta)%n + n) % n
	m.search.Blur()
	m.clampScroll()
	if cmd := m.ensureLoaded(m.active); cmd != nil {
		return cmd
	}
	return m.maybeLoadMore()
}

// cycleGenre moves the active tab's genre filter through "all" and every
// known genre, wrapping at both ends.
func (m *Model) cycleGenre(dir int) tea.Cmd {
	t := m.current()
	if !t.honors("genre") {
		return nil
	}
	if len(m.genres) == 0 {
		if m.genresErr != nil {
			m.genresErr = nil
			return m.loadGenres()
		}
		return nil
	}

	filter := t.list.Filter()
	pos := -1
	for i, g := range m.genres {
		if g.ID == filter.Genre.ID {
			pos = i
			break
		}
	}
	slots := len(m.genres) + 1
	pos = ((pos+1+dir)%slots+slots)%slots - 1
	if pos < 0 {
		filter.Genre = catalog.AllGenres
	} else {
		filter.Genre = catalog.Genre(m.genres[pos].ID)
	}

	req, ok := t.list.BeginSetFilter(filter)
	if !ok {
		return nil
	}
	return m.dispatch(m.active, req)
}

func (m *Model) focusSearch() tea.Cmd {
	idx, ok := m.searchTab()
	if !ok {
		return nil
	}
	m.active = idx
	m.clampScroll()
	return tea.Batch(m.search.Focus(), textinput.Blink)
}

// applySearch runs the typed query on the search tab. A query equal to the
// one already shown is not sent again.
func (m *Model) applySearch() tea.Cmd {
	idx, ok := m.searchTab()
	if !ok {
		return nil
	}
	t := m.tabs[idx]
	query := strings.TrimSpace(m.search.Value())
	filter := t.list.Filter()
	if query == filter.Query && t.list.Epoch() > 0 {
		return nil
	}
	filter.Query = query
	req, ok := t.list.BeginSetFilter(filter)
	if !ok {
		return nil
	}
	m.log.Debugf("Searching %q", query)
	return m.dispatch(idx, req)
}

// retry retries a failed page, or reloads the tab from page 1.
func (m *Model) retry() tea.Cmd {
	t := m.current()
	if t.list.Err() != nil && t.list.Len() > 0 {
		if req, ok := t.list.BeginLoadMore(); ok {
			return m.dispatch(m.active, req)
		}
	}
	req, ok := t.list.BeginReload()
	if !ok {
		return nil
	}
	return m.dispatch(m.active, req)
}

func (m *Model) openDetail() tea.Cmd {
	if m.details == nil {
		return nil
	}
	game, ok := m.current().list.Item(m.current().cursor)
	if !ok {
		return nil
	}
	m.mode = modeDetail
	return m.loadDetail(game.ID, game.Name)
}

func (m *Model) loadDetail(id int, name string) tea.Cmd {
	m.detailID, m.detailName = id, name
	m.detail = nil
	m.detailErr = ""
	m.detailLoading = true
	m.detailSeq++
	seq := m.detailSeq

	ctx, timeout, details := m.ctx, m.opts.FetchTimeout, m.details
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		view, err := details.Get(ctx, id)
		return detailMsg{seq: seq, view: view, err: err}
	})
}

func (m *Model) handleDetail(msg detailMsg) {
	if msg.seq != m.detailSeq {
		return
	}
	m.detailLoading = false
	if msg.err != nil {
		m.detailErr = rawg.UserMessage(msg.err)
		m.log.Warnf("Loading game %d failed: %v", m.detailID, msg.err)
		return
	}
	m.detail = msg.view
	m.viewport.Height = m.rows()
	m.viewport.SetContent(renderDetail(msg.view, m.width))
	m.viewport.GotoTop()
}
