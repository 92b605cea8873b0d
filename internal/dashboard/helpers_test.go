package dashboard

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/fakeapi"
	"github.com/infokelas/kelas/internal/portal"
	"github.com/infokelas/kelas/internal/query"
	"github.com/infokelas/kelas/internal/session"
	"github.com/infokelas/kelas/internal/storage"
)

// monday is 09:00 on a Monday, when the demo class has two lectures.
var monday = time.Date(2024, 9, 2, 9, 0, 0, 0, time.Local)

type fixture struct {
	deps  Deps
	cache *query.Client
	store *storage.FileStore
	fake  *fakeapi.Server
}

// setup signs the demo student in against a fake portal.
func setup(t *testing.T) *fixture {
	t.Helper()
	now := func() time.Time { return monday }
	fake := fakeapi.New(fakeapi.WithClock(now))
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store := storage.NewFileStore(t.TempDir())
	if err := store.SaveSession(fakeapi.DemoToken, api.User{ID: 1, Name: "Ani Lestari"}); err != nil {
		t.Fatal(err)
	}
	client := api.New(srv.URL+"/api", store)
	cache := query.New()
	t.Cleanup(cache.Wait)

	return &fixture{
		deps: Deps{
			Cache:   cache,
			Catalog: portal.NewCatalog(client, portal.DefaultStaleTimes()),
			Session: session.New(client, cache, store),
			Themes:  store,
			Now:     now,
		},
		cache: cache,
		store: store,
		fake:  fake,
	}
}

// sized returns a dashboard that has received a window size.
func (f *fixture) sized(t *testing.T) Model {
	t.Helper()
	updated, _ := New(f.deps).Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

// run executes cmd, waits for the fetches it started, and feeds the
// resulting messages back into m. Spinner ticks are skipped.
func (f *fixture) run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = f.run(t, m, c)
		}
		return m
	}
	if _, isTick := msg.(spinner.TickMsg); isTick {
		return m
	}
	f.cache.Wait()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

// start runs the dashboard under teatest with cache events bridged in.
// The bridge is registered first so no event from Init is lost.
func (f *fixture) start(t *testing.T) *teatest.TestModel {
	t.Helper()
	var tm *teatest.TestModel
	ready := make(chan struct{})
	unsubscribe := Subscribe(f.cache, func(msg tea.Msg) {
		<-ready
		tm.Send(msg)
	})
	t.Cleanup(unsubscribe)
	tm = teatest.NewTestModel(t, New(f.deps), teatest.WithInitialTermSize(100, 30))
	close(ready)
	return tm
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends one key and returns the model and the command it produced.
func press(m Model, s string) (Model, tea.Cmd) {
	updated, cmd := m.Update(key(s))
	return updated.(Model), cmd
}

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}
