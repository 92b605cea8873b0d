package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/portal"
	"github.com/infokelas/kelas/internal/query"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

// watched is a query the current view reads. touch fetches it when missing
// or stale; invalidating its key touches it again.
type watched struct {
	key query.Key
	get func(ctx context.Context, c *query.Client)
}

func watch[T any](q query.Query[T]) watched {
	return watched{
		key: q.Key,
		get: func(ctx context.Context, c *query.Client) { query.Get(ctx, c, q) },
	}
}

// classNav is the drill-down position inside the Kelas page.
type classNav struct {
	classID     int // 0 on the class list.
	subjectID   int // 0 unless a subject's materials are open.
	subjectName string
	cursor      int
}

func (n classNav) depth() int {
	switch {
	case n.subjectID != 0:
		return 2
	case n.classID != 0:
		return 1
	default:
		return 0
	}
}

// watched returns the queries the current page and drill-down read.
func (m Model) watched() []watched {
	cat := m.deps.Catalog
	switch m.page {
	case PageHome:
		return []watched{watch(cat.Profile()), watch(cat.TodaySchedules()), watch(cat.Announcements(portal.DashboardAnnouncements))}
	case PageClasses:
		switch m.classes.depth() {
		case 2:
			return []watched{watch(cat.SubjectMaterials(m.classes.subjectID))}
		case 1:
			return []watched{watch(cat.Classroom(m.classes.classID)), watch(cat.ClassroomSubjects(m.classes.classID))}
		default:
			return []watched{watch(cat.MyClassrooms())}
		}
	case PageSchedule:
		return []watched{watch(cat.Schedules())}
	case PageAnnouncements:
		return []watched{watch(cat.Announcements(0))}
	case PageProfile:
		return []watched{watch(cat.Profile())}
	}
	return nil
}

// watches reports whether key is read by the current view.
func (m Model) watches(key query.Key) bool {
	for _, w := range m.watched() {
		if w.key.Equal(key) {
			return true
		}
	}
	return false
}

// busy reports whether any watched query has a fetch running.
func (m Model) busy() bool {
	for _, w := range m.watched() {
		if s, ok := m.deps.Cache.Peek(w.key); !ok || s.Fetching {
			return true
		}
	}
	return false
}

// status renders the placeholder for a result that has nothing to show
// yet, or "" when data is ready.
func (m Model) status(ok bool, loading, failed bool, err error) string {
	switch {
	case failed:
		return m.styles.Error.Render(api.Message(err)) + "\n" + m.styles.Muted.Render("press r to retry")
	case !ok || loading:
		return m.spinner.View() + " Memuat..."
	}
	return ""
}

func lookup[T any](m Model, q query.Query[T]) (query.Result[T], string) {
	res, ok := query.Lookup[T](m.deps.Cache, q.Key)
	return res, m.status(ok, res.Loading() && !res.HasData, res.Failed(), res.Err)
}

// renderPage renders the content pane for the current page.
func (m Model) renderPage() string {
	switch m.page {
	case PageHome:
		return m.renderHome()
	case PageClasses:
		switch m.classes.depth() {
		case 2:
			return m.renderMaterials()
		case 1:
			return m.renderClass()
		default:
			return m.renderClassList()
		}
	case PageSchedule:
		return m.renderSchedule()
	case PageAnnouncements:
		return m.renderAnnouncements(m.deps.Catalog.Announcements(0))
	case PageProfile:
		return m.renderProfile()
	}
	return ""
}

func (m Model) renderHome() string {
	cat := m.deps.Catalog
	now := m.deps.Now()
	var b strings.Builder

	greeting := portal.Greeting(now)
	if profile, _ := lookup(m, cat.Profile()); profile.HasData {
		greeting += ", " + profile.Data.Name
	}
	b.WriteString(m.styles.Title.Render(greeting))
	fmt.Fprintf(&b, "\n%s\n\n", m.styles.Muted.Render(portal.DayName(now)+", "+now.Format("02-01-2006")))

	b.WriteString(m.styles.Title.Render("Jadwal Hari Ini") + "\n")
	if today, placeholder := lookup(m, cat.TodaySchedules()); placeholder != "" {
		b.WriteString(placeholder + "\n")
	} else if len(today.Data) == 0 {
		b.WriteString(m.styles.Muted.Render("Tidak ada kuliah hari ini") + "\n")
	} else {
		for _, s := range today.Data {
			b.WriteString(scheduleLine(s) + "\n")
		}
	}

	b.WriteString("\n" + m.styles.Title.Render("Pengumuman Terbaru") + "\n")
	b.WriteString(m.renderAnnouncementList(cat.Announcements(portal.DashboardAnnouncements), false))
	return b.String()
}

func scheduleLine(s api.Schedule) string {
	line := fmt.Sprintf("  %s  %s", s.Time, s.SubjectName)
	if s.Room != "" {
		line += " · " + s.Room
	}
	if s.Lecturer != "" {
		line += " · " + s.Lecturer
	}
	return line
}

func (m Model) cursorLine(i int, text string) string {
	if i == m.classes.cursor && m.focus == PaneContent {
		return m.styles.Selected.Render(CursorMarker + text)
	}
	return "  " + text
}

func (m Model) renderClassList() string {
	res, placeholder := lookup(m, m.deps.Catalog.MyClassrooms())
	if placeholder != "" {
		return placeholder
	}
	if len(res.Data) == 0 {
		return m.styles.Muted.Render("Belum ada kelas. Press g to join one.")
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Kelas Saya") + "\n")
	for i, c := range res.Data {
		line := c.Name
		if c.Major != "" {
			line += " " + m.styles.Muted.Render(c.Major)
		}
		b.WriteString(m.cursorLine(i, line) + "\n")
	}
	return b.String()
}

func (m Model) renderClass() string {
	cat := m.deps.Catalog
	var b strings.Builder
	class, placeholder := lookup(m, cat.Classroom(m.classes.classID))
	if placeholder != "" {
		return placeholder
	}
	c := class.Data
	b.WriteString(m.styles.Title.Render(c.Name) + "\n")
	for _, field := range []struct{ label, value string }{
		{"Kampus", c.University},
		{"Prodi", c.Major},
		{"Semester", c.Semester},
		{"Kode", c.Code},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, "%s %s\n", m.styles.Muted.Render(field.label+":"), field.value)
		}
	}
	if c.Teacher != nil {
		fmt.Fprintf(&b, "%s %s\n", m.styles.Muted.Render("Admin:"), c.Teacher.Name)
	}

	b.WriteString("\n" + m.styles.Title.Render("Mata Kuliah") + "\n")
	subjects, placeholder := lookup(m, cat.ClassroomSubjects(m.classes.classID))
	switch {
	case placeholder != "":
		b.WriteString(placeholder)
	case len(subjects.Data) == 0:
		b.WriteString(m.styles.Muted.Render("Belum ada mata kuliah"))
	default:
		for i, s := range subjects.Data {
			b.WriteString(m.cursorLine(i, s.Name+" "+m.styles.Muted.Render(s.Code)) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderMaterials() string {
	res, placeholder := lookup(m, m.deps.Catalog.SubjectMaterials(m.classes.subjectID))
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Materi · "+m.classes.subjectName) + "\n")
	switch {
	case placeholder != "":
		b.WriteString(placeholder)
	case len(res.Data) == 0:
		b.WriteString(m.styles.Muted.Render("Belum ada materi"))
	default:
		for _, mat := range res.Data {
			b.WriteString("  " + mat.Title + "\n")
			if mat.Description != "" {
				b.WriteString("    " + m.styles.Muted.Render(mat.Description) + "\n")
			}
			if mat.FileURL != "" {
				b.WriteString("    " + mat.FileURL + "\n")
			}
		}
	}
	return b.String()
}

func (m Model) renderSchedule() string {
	res, placeholder := lookup(m, m.deps.Catalog.Schedules())
	if placeholder != "" {
		return placeholder
	}
	groups := portal.GroupByDay(res.Data)
	if len(groups) == 0 {
		return m.styles.Muted.Render("Belum ada jadwal")
	}
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.styles.Title.Render(g.Day) + "\n")
		for _, s := range g.Items {
			b.WriteString(scheduleLine(s) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderAnnouncements(q query.Query[[]api.Announcement]) string {
	return m.styles.Title.Render("Pengumuman") + "\n" + m.renderAnnouncementList(q, true)
}

func (m Model) renderAnnouncementList(q query.Query[[]api.Announcement], full bool) string {
	res, placeholder := lookup(m, q)
	if placeholder != "" {
		return placeholder + "\n"
	}
	if len(res.Data) == 0 {
		return m.styles.Muted.Render("Belum ada pengumuman") + "\n"
	}
	var b strings.Builder
	for _, a := range res.Data {
		fmt.Fprintf(&b, "  %s %s", m.styles.Badge(a.Type), a.Title)
		if a.Date != "" {
			b.WriteString(" " + m.styles.Muted.Render(a.Date))
		}
		b.WriteByte('\n')
		if full && a.Content != "" {
			b.WriteString("    " + a.Content + "\n")
		}
	}
	return b.String()
}

func (m Model) renderProfile() string {
	res, placeholder := lookup(m, m.deps.Catalog.Profile())
	if placeholder != "" {
		return placeholder
	}
	u := res.Data
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(u.Name) + "\n")
	for _, field := range []struct{ label, value string }{
		{"Email", u.Email},
		{"NIM", u.NIM},
		{"Avatar", u.AvatarURL},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, "%s %s\n", m.styles.Muted.Render(field.label+":"), field.value)
		}
	}
	b.WriteString("\n" + m.styles.Muted.Render("Theme: "+m.theme+" (t to toggle)"))
	return b.String()
}
