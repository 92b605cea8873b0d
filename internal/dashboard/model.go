package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/portal"
	"github.com/infokelas/kelas/internal/query"
	"github.com/infokelas/kelas/internal/storage"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// headerHeight is the page title line above the viewport.
const headerHeight = 1

// Deps are the services the dashboard reads from and writes to.
type Deps struct {
	Cache   *query.Client
	Catalog *portal.Catalog
	Session Session
	Themes  ThemeStore
	Now     func() time.Time
}

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	deps Deps

	page    Page
	focus   Focus
	classes classNav

	modal     modal
	join      textinput.Model
	joining   bool
	result    string
	resultErr bool

	theme  string
	styles Styles
	notice string // Last failed side effect, shown above the help bar.

	leaving   bool // Logout confirmed; the cache clear that follows is expected.
	loggedOut bool
	expired   bool

	width    int
	height   int
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
}

// New creates a dashboard on the home page with the navigation focused.
func New(deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	theme := storage.ThemeLight
	if deps.Themes != nil {
		if t, err := deps.Themes.Theme(); err == nil {
			theme = t
		}
	}

	ti := textinput.New()
	ti.Placeholder = "Kode kelas"
	ti.CharLimit = 12

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		deps:     deps,
		page:     PageHome,
		focus:    PaneNav,
		join:     ti,
		theme:    theme,
		styles:   StylesFor(theme),
		viewport: viewport.New(0, 0),
		spinner:  sp,
		help:     help.New(),
	}
}

// LoggedOut reports whether the dashboard ended with a confirmed logout.
func (m Model) LoggedOut() bool { return m.loggedOut }

// Expired reports whether the dashboard ended because the server rejected
// the session.
func (m Model) Expired() bool { return m.expired }

// Init starts the spinner and the first reads of the home page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.touch())
}

// touch reads every watched query without blocking. Missing or stale
// entries start a background fetch whose result arrives as a CacheEventMsg.
func (m Model) touch() tea.Cmd {
	ws, cache := m.watched(), m.deps.Cache
	return func() tea.Msg {
		ctx := context.Background()
		for _, w := range ws {
			w.get(ctx, cache)
		}
		return touchedMsg{}
	}
}

// refresh invalidates the watched queries and reads them again.
func (m Model) refresh() tea.Cmd {
	ws, cache := m.watched(), m.deps.Cache
	return func() tea.Msg {
		ctx := context.Background()
		for _, w := range ws {
			cache.Invalidate(w.key)
			w.get(ctx, cache)
		}
		return touchedMsg{}
	}
}

func (m Model) joinClass(code string) tea.Cmd {
	mut, cache := m.deps.Catalog.JoinClass(), m.deps.Cache
	return func() tea.Msg {
		message, err := mut.Exec(context.Background(), cache, code)
		return joinResultMsg{message: message, err: err}
	}
}

func (m Model) saveTheme(theme string) tea.Cmd {
	themes := m.deps.Themes
	return func() tea.Msg {
		if themes == nil {
			return themeMsg{theme: theme}
		}
		return themeMsg{theme: theme, err: themes.SetTheme(theme)}
	}
}

func (m Model) logout() tea.Cmd {
	sess := m.deps.Session
	return func() tea.Msg {
		if sess == nil {
			return logoutMsg{}
		}
		return logoutMsg{err: sess.Logout(context.Background())}
	}
}

// Update handles incoming messages. Cache writes only happen inside the
// returned commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		_, contentWidth := PaneWidths(msg.Width)
		m.viewport.Width = max(contentWidth-borderChrome, 0)
		m.viewport.Height = max(m.contentHeight()-headerHeight, 1)
		return m.sync(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m.sync(), cmd

	case touchedMsg:
		return m.sync(), nil

	case CacheEventMsg:
		return m.handleEvent(msg.Event)

	case joinResultMsg:
		m.joining = false
		m.modal = modalResult
		m.resultErr = msg.err != nil
		m.result = msg.message
		if msg.err != nil {
			m.result = api.Message(msg.err)
		}
		return m.sync(), nil

	case themeMsg:
		if msg.err != nil {
			m.notice = "saving theme: " + msg.err.Error()
			return m, nil
		}
		m.theme = msg.theme
		m.styles = StylesFor(msg.theme)
		return m.sync(), nil

	case logoutMsg:
		m.loggedOut = true
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleEvent(ev query.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case query.EventCleared:
		if m.leaving {
			return m, nil
		}
		if m.deps.Session != nil && !m.deps.Session.SignedIn() {
			m.expired = true
			return m, tea.Quit
		}
		return m.sync(), m.touch()
	case query.EventInvalidated:
		if m.watches(ev.Key) {
			return m.sync(), m.touch()
		}
	}
	return m.sync(), nil
}

// handleKey routes keys to the open modal, the global bindings, or the
// focused pane.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != modalNone {
		return m.handleModalKey(msg)
	}
	m.notice = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == PaneNav {
			m.focus = PaneContent
		} else {
			m.focus = PaneNav
		}
		return m.sync(), nil
	case "r":
		return m, m.refresh()
	case "g":
		m.modal = modalJoin
		m.join.SetValue("")
		return m, m.join.Focus()
	case "t":
		next := storage.ThemeDark
		if m.theme == storage.ThemeDark {
			next = storage.ThemeLight
		}
		return m, m.saveTheme(next)
	case "x":
		m.modal = modalLogout
		return m, nil
	}

	if m.focus == PaneNav {
		return m.handleNavKey(msg)
	}
	return m.handleContentKey(msg)
}

func (m Model) handleNavKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		return m.openPage(Page((int(m.page) + len(Pages) - 1) % len(Pages)))
	case "down", "j":
		return m.openPage(Page((int(m.page) + 1) % len(Pages)))
	case "enter", "right", "l":
		m.focus = PaneContent
		return m.sync(), nil
	}
	return m, nil
}

// openPage switches page and reads its queries.
func (m Model) openPage(p Page) (tea.Model, tea.Cmd) {
	m.page = p
	m.classes = classNav{}
	m.viewport.GotoTop()
	return m.sync(), m.touch()
}

func (m Model) handleContentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "esc" || key == "backspace" {
		return m.back()
	}
	if m.page == PageClasses && m.classes.depth() < 2 {
		return m.handleListKey(key)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// back leaves the class drill-down one level, or returns to the navigation.
func (m Model) back() (tea.Model, tea.Cmd) {
	switch {
	case m.page == PageClasses && m.classes.subjectID != 0:
		m.classes.subjectID, m.classes.subjectName, m.classes.cursor = 0, "", 0
	case m.page == PageClasses && m.classes.classID != 0:
		m.classes = classNav{}
	default:
		m.focus = PaneNav
		return m.sync(), nil
	}
	m.viewport.GotoTop()
	return m.sync(), m.touch()
}

func (m Model) handleListKey(key string) (tea.Model, tea.Cmd) {
	cache := m.deps.Cache
	switch m.classes.depth() {
	case 0:
		res, _ := query.Lookup[[]api.Classroom](cache, portal.MyClassroomsKey())
		switch key {
		case "enter":
			if m.classes.cursor < len(res.Data) {
				m.classes = classNav{classID: res.Data[m.classes.cursor].ID}
				m.viewport.GotoTop()
				return m.sync(), m.touch()
			}
		default:
			m.classes.cursor = moveCursor(m.classes.cursor, len(res.Data), key)
		}
	case 1:
		res, _ := query.Lookup[[]api.Subject](cache, portal.ClassroomSubjectsKey(m.classes.classID))
		switch key {
		case "enter":
			if m.classes.cursor < len(res.Data) {
				s := res.Data[m.classes.cursor]
				m.classes.subjectID, m.classes.subjectName, m.classes.cursor = s.ID, s.Name, 0
				m.viewport.GotoTop()
				return m.sync(), m.touch()
			}
		default:
			m.classes.cursor = moveCursor(m.classes.cursor, len(res.Data), key)
		}
	}
	return m.sync(), nil
}

// moveCursor applies an up or down key to a wrapping cursor over n rows.
func moveCursor(cursor, n int, key string) int {
	if n == 0 {
		return 0
	}
	switch key {
	case "up", "k":
		cursor--
	case "down", "j":
		cursor++
	}
	return (cursor%n + n) % n
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalResult:
		m.modal = modalNone
		return m.sync(), nil

	case modalLogout:
		switch msg.String() {
		case "enter", "y":
			m.leaving = true
			return m, m.logout()
		case "esc", "n":
			m.modal = modalNone
		}
		return m, nil

	case modalJoin:
		if m.joining {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.modal = modalNone
			m.join.Blur()
			return m, nil
		case "enter":
			m.joining = true
			m.join.Blur()
			return m, m.joinClass(m.join.Value())
		}
		var cmd tea.Cmd
		m.join, cmd = m.join.Update(msg)
		return m, cmd
	}
	return m, nil
}

// sync re-renders the current page into the viewport.
func (m Model) sync() Model {
	m.viewport.SetContent(m.renderPage())
	return m
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight
	if m.notice != "" {
		h--
	}
	return max(h, 1)
}

// View renders the two-pane layout with help bar, or the open modal.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.expired {
		return m.styles.Error.Render("Sesi berakhir. Jalankan `kelas login` untuk masuk lagi.") + "\n"
	}

	navWidth, contentWidth := PaneWidths(m.width)
	h := m.contentHeight()

	navStyle, contentStyle := m.styles.Focused, m.styles.Unfocused
	if m.focus == PaneContent {
		navStyle, contentStyle = m.styles.Unfocused, m.styles.Focused
	}
	navPane := navStyle.Width(navWidth - borderChrome).Height(h).Render(m.viewNav())
	contentPane := contentStyle.Width(contentWidth - borderChrome).Height(h).Render(m.viewContent())
	body := lipgloss.JoinHorizontal(lipgloss.Top, navPane, contentPane)
	if m.modal != modalNone {
		body = lipgloss.Place(m.width, h+borderChrome, lipgloss.Center, lipgloss.Center, m.viewModal())
	}

	parts := []string{body}
	if m.notice != "" {
		parts = append(parts, m.styles.Error.Render(m.notice))
	}
	parts = append(parts, m.help.View(helpBindings(m.modal)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewNav() string {
	var b strings.Builder
	for i, p := range Pages {
		if i > 0 {
			b.WriteByte('\n')
		}
		if p == m.page {
			b.WriteString(m.styles.Selected.Render(CursorMarker + p.String()))
		} else {
			b.WriteString("  " + p.String())
		}
	}
	return b.String()
}

func (m Model) viewContent() string {
	header := m.page.String()
	if m.busy() {
		header += " " + m.spinner.View()
	}
	return m.styles.Muted.Render(header) + "\n" + m.viewport.View()
}

func (m Model) viewModal() string {
	var b strings.Builder
	switch m.modal {
	case modalJoin:
		b.WriteString(m.styles.Title.Render("Gabung Kelas") + "\n\n")
		b.WriteString(m.join.View())
		if m.joining {
			b.WriteString("\n\n" + m.spinner.View() + " Memproses...")
		}
	case modalResult:
		if m.resultErr {
			b.WriteString(m.styles.Error.Render(m.result))
		} else {
			b.WriteString(m.result)
		}
	case modalLogout:
		b.WriteString("Keluar dari akun?\n\n  [Enter] Ya   [Esc] Batal")
	}
	return m.styles.Modal.Render(b.String())
}
