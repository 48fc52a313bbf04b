package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/tasks"
)

// RefreshInterval is how often the monitor re-reads the queue without an event.
const RefreshInterval = time.Second

// actionTimeout bounds every call the monitor makes into the queue.
const actionTimeout = 10 * time.Second

// QueueOperations is the subset of [tasks.Operations] the monitor drives.
type QueueOperations interface {
	Status(ctx context.Context) (*models.QueueSnapshot, error)
	Pause(ctx context.Context, sessionID string) tasks.Result
	Resume(ctx context.Context, sessionID string) tasks.Result
	RetrySession(ctx context.Context, sessionID string) tasks.Result
	Delete(ctx context.Context, sessionID string) tasks.Result
	RetryItem(ctx context.Context, itemID string) tasks.Result
	CancelItem(ctx context.Context, itemID string) tasks.Result
}

var _ QueueOperations = (*tasks.Operations)(nil)

// ViewKind identifies which screen is rendered.
type ViewKind int

const (
	SessionListView ViewKind = iota
	ItemListView
)

// Model is the bubbletea model of the queue monitor.
type Model struct {
	ops    QueueOperations
	events <-chan tasks.Event

	view     ViewKind
	sessions list.Model
	items    list.Model
	help     help.Model
	keys     keyMap

	snapshot  *models.QueueSnapshot
	sessionID string
	status    string
	statusOK  bool
	lastEvent string
	err       error

	width, height int
}

// NewModel creates the monitor. events may be nil, in which case only the periodic refresh updates the view.
func NewModel(ops QueueOperations, events <-chan tasks.Event) Model {
	sessions := newList("Download Queue")
	items := newList("Items")

	return Model{
		ops:      ops,
		events:   events,
		view:     SessionListView,
		sessions: sessions,
		items:    items,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 20)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = styles.title
	return l
}

// Run starts the monitor full-screen and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, ops QueueOperations, events <-chan tasks.Event) error {
	p := tea.NewProgram(NewModel(ops, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSnapshot(), tick(), m.waitForEvent())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-6, 5)
		m.sessions.SetSize(msg.Width, h)
		m.items.SetSize(msg.Width, h)
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshotFetched:
		data := msg.data.(snapshotData)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.applySnapshot(data.snapshot)
		return m, nil
	case MsgQueueEvent:
		e := msg.data.(tasks.Event)
		m.lastEvent = fmt.Sprintf("%s %s", e.Time.Format(time.TimeOnly), e.Message)
		return m, tea.Batch(m.fetchSnapshot(), m.waitForEvent())
	case MsgEventsClosed:
		m.events = nil
		return m, nil
	case MsgActionDone:
		res := msg.data.(tasks.Result)
		m.status, m.statusOK = res.Message, res.Err == nil
		return m, m.fetchSnapshot()
	case MsgTick:
		return m, tea.Batch(m.fetchSnapshot(), tick())
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if s, ok := m.selectedSession(); ok && m.view == SessionListView {
			m.view = ItemListView
			m.sessionID = s.Session.ID()
			m.items.Title = fmt.Sprintf("Items of %s", sessionItem{s}.Title())
			m.items.SetItems(itemsOf(s))
			m.items.Select(0)
		}
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.view == ItemListView {
			m.view = SessionListView
			m.sessionID = ""
		}
		return m, nil
	case key.Matches(msg, m.keys.pause):
		return m, m.sessionAction(m.ops.Pause)
	case key.Matches(msg, m.keys.resume):
		return m, m.sessionAction(m.ops.Resume)
	case key.Matches(msg, m.keys.remove):
		cmd := m.sessionAction(m.ops.Delete)
		if m.view == ItemListView {
			m.view = SessionListView
			m.sessionID = ""
		}
		return m, cmd
	case key.Matches(msg, m.keys.retry):
		if m.view == ItemListView {
			return m, m.itemAction(m.ops.RetryItem)
		}
		return m, m.sessionAction(m.ops.RetrySession)
	case key.Matches(msg, m.keys.cancel):
		if m.view == ItemListView {
			return m, m.itemAction(m.ops.CancelItem)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ItemListView {
		m.items, cmd = m.items.Update(msg)
	} else {
		m.sessions, cmd = m.sessions.Update(msg)
	}
	return m, cmd
}

// applySnapshot refreshes both lists, keeping the cursor where the list allows it.
func (m *Model) applySnapshot(snap *models.QueueSnapshot) {
	m.snapshot = snap

	sessions := make([]list.Item, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		sessions = append(sessions, sessionItem{s})
	}
	m.sessions.SetItems(sessions)

	if m.view != ItemListView {
		return
	}
	s, ok := snap.Find(m.sessionID)
	if !ok {
		m.view = SessionListView
		m.sessionID = ""
		return
	}
	m.items.SetItems(itemsOf(s))
}

func itemsOf(s models.SessionSnapshot) []list.Item {
	items := make([]list.Item, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, queueItem{item})
	}
	return items
}

// selectedSession returns the session under the cursor, or the session whose items are shown.
func (m Model) selectedSession() (models.SessionSnapshot, bool) {
	if m.view == ItemListView && m.snapshot != nil {
		return m.snapshot.Find(m.sessionID)
	}
	item, ok := m.sessions.SelectedItem().(sessionItem)
	if !ok {
		return models.SessionSnapshot{}, false
	}
	return item.snapshot, true
}

func (m Model) sessionAction(fn func(context.Context, string) tasks.Result) tea.Cmd {
	s, ok := m.selectedSession()
	if !ok {
		return nil
	}
	id := s.Session.ID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg(fn(ctx, id))
	}
}

func (m Model) itemAction(fn func(context.Context, string) tasks.Result) tea.Cmd {
	item, ok := m.items.SelectedItem().(queueItem)
	if !ok {
		return nil
	}
	id := item.item.ID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg(fn(ctx, id))
	}
}

func (m Model) fetchSnapshot() tea.Cmd {
	ops := m.ops
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		snap, err := ops.Status(ctx)
		return snapshotFetchedMsg(snap, err)
	}
}

// waitForEvent blocks on the manager's event channel and turns the next event into a message.
func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return queueEventMsg(e)
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) View() string {
	var b strings.Builder

	switch m.view {
	case ItemListView:
		b.WriteString(m.items.View())
	default:
		if m.snapshot != nil && len(m.snapshot.Sessions) == 0 {
			b.WriteString(styles.title.Render("Download Queue"))
			b.WriteString("\n")
			b.WriteString(styles.help.Render("Queue is empty"))
		} else {
			b.WriteString(m.sessions.View())
		}
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(styles.status(m.status, m.statusOK))
		b.WriteString("\n")
	}
	if m.lastEvent != "" {
		b.WriteString(styles.warn.Render(m.lastEvent))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}
