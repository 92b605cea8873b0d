// Package dashboard implements the full-screen portal view: a page list on
// the left, the selected page on the right, and modals for joining a class
// and signing out. Every read goes through the query cache; cache events
// arrive as CacheEventMsg and repaint the current page.
package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/infokelas/kelas/internal/query"
)

// Page is one entry of the navigation pane.
type Page int

const (
	PageHome          Page = iota // Greeting, today's schedule and latest announcements.
	PageClasses                   // Class list, class detail and subject materials.
	PageSchedule                  // Weekly schedule grouped by day.
	PageAnnouncements             // Every announcement.
	PageProfile                   // The signed-in student.
)

// Pages lists the navigation entries in display order.
var Pages = []Page{PageHome, PageClasses, PageSchedule, PageAnnouncements, PageProfile}

var pageTitles = [...]string{
	PageHome:          "Beranda",
	PageClasses:       "Kelas",
	PageSchedule:      "Jadwal",
	PageAnnouncements: "Pengumuman",
	PageProfile:       "Profil",
}

func (p Page) String() string {
	if p < 0 || int(p) >= len(pageTitles) {
		return "?"
	}
	return pageTitles[p]
}

// Focus represents which pane has keyboard focus.
type Focus int

const (
	PaneNav     Focus = iota // Page list.
	PaneContent              // Selected page.
)

type modal int

const (
	modalNone modal = iota
	modalJoin
	modalResult
	modalLogout
)

// --- Consumer-side interfaces ---

// Session is the sign-in state the dashboard needs.
type Session interface {
	SignedIn() bool
	Logout(ctx context.Context) error
}

// ThemeStore persists the theme preference.
type ThemeStore interface {
	Theme() (string, error)
	SetTheme(theme string) error
}

// --- tea.Msg types ---

// CacheEventMsg carries a query cache event into the update loop.
type CacheEventMsg struct {
	Event query.Event
}

// Subscribe forwards cache events to send, usually tea.Program.Send.
// Cache writes must then happen inside tea.Cmds, never in Update, because
// Send blocks until the update loop receives the message.
func Subscribe(cache *query.Client, send func(tea.Msg)) (unsubscribe func()) {
	return cache.Subscribe(func(ev query.Event) {
		send(CacheEventMsg{Event: ev})
	})
}

// touchedMsg follows a batch of non-blocking cache reads.
type touchedMsg struct{}

type joinResultMsg struct {
	message string
	err     error
}

type themeMsg struct {
	theme string
	err   error
}

type logoutMsg struct {
	err error
}
