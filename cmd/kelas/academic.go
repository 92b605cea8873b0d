package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/sync/errgroup"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/portal"
	"github.com/infokelas/kelas/internal/query"
)

var errScope = errors.New("pass exactly one of --class or --subject")

// writeTable prints rows under headers with a plain border.
func writeTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, _ = fmt.Fprintln(w, t.String())
}

// writeFields prints a title followed by the non-empty labelled values.
func writeFields(w io.Writer, title string, fields [][2]string) {
	_, _ = fmt.Fprintln(w, title)
	for _, f := range fields {
		if f[1] != "" {
			_, _ = fmt.Fprintf(w, "  %-10s %s\n", f[0]+":", f[1])
		}
	}
}

// fetch opens the app, checks the session and runs one cached read.
func fetch[T any](g *Globals, q func(*portal.Catalog) query.Query[T]) (T, error) {
	var zero T
	a, err := g.open()
	if err != nil {
		return zero, err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return zero, err
	}
	ctx, stop := signalContext()
	defer stop()
	return query.Fetch(ctx, a.cache, q(a.catalog))
}

// ClassesCmd lists the student's classes.
type ClassesCmd struct{}

// Run executes the classes command.
func (c *ClassesCmd) Run(g *Globals, w io.Writer) error {
	classes, err := fetch(g, (*portal.Catalog).MyClassrooms)
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		_, _ = fmt.Fprintln(w, "No classes yet. Join one with `kelas join CODE`.")
		return nil
	}
	rows := make([][]string, len(classes))
	for i, cls := range classes {
		admin := ""
		if cls.Teacher != nil {
			admin = cls.Teacher.Name
		}
		rows[i] = []string{strconv.Itoa(cls.ID), cls.Name, cls.Major, cls.Semester, admin}
	}
	writeTable(w, []string{"ID", "Kelas", "Prodi", "Semester", "Admin"}, rows)
	return nil
}

// ClassCmd shows one class with its subjects.
type ClassCmd struct {
	ID int `arg:"" help:"Class ID."`
}

// Run executes the class command. The class and its subjects load in parallel.
func (c *ClassCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	var (
		class    api.Classroom
		subjects []api.Subject
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		class, err = query.Fetch(egCtx, a.cache, a.catalog.Classroom(c.ID))
		return err
	})
	eg.Go(func() (err error) {
		subjects, err = query.Fetch(egCtx, a.cache, a.catalog.ClassroomSubjects(c.ID))
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	fields := [][2]string{
		{"Kampus", class.University},
		{"Prodi", class.Major},
		{"Semester", class.Semester},
		{"Kode", class.Code},
	}
	if class.Teacher != nil {
		fields = append(fields, [2]string{"Admin", class.Teacher.Name})
	}
	writeFields(w, class.Name, fields)
	if len(subjects) == 0 {
		_, _ = fmt.Fprintln(w, "\nNo subjects yet.")
		return nil
	}
	_, _ = fmt.Fprintln(w)
	rows := make([][]string, len(subjects))
	for i, s := range subjects {
		rows[i] = []string{strconv.Itoa(s.ID), s.Name, s.Code}
	}
	writeTable(w, []string{"ID", "Mata Kuliah", "Kode"}, rows)
	return nil
}

// JoinCmd joins a class by code.
type JoinCmd struct {
	Code string `arg:"" help:"Class code from the class admin."`
}

// Run executes the join command.
func (c *JoinCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	msg, err := a.catalog.JoinClass().Exec(ctx, a.cache, c.Code)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, msg)
	return nil
}

// ScheduleCmd shows the weekly schedule grouped by day.
type ScheduleCmd struct {
	Today bool `help:"Only today's lectures."`
}

// Run executes the schedule command.
func (c *ScheduleCmd) Run(g *Globals, w io.Writer) error {
	q := (*portal.Catalog).Schedules
	if c.Today {
		q = (*portal.Catalog).TodaySchedules
	}
	schedules, err := fetch(g, q)
	if err != nil {
		return err
	}
	if c.Today {
		_, _ = fmt.Fprintf(w, "%s\n", portal.DayName(time.Now()))
		if len(schedules) == 0 {
			_, _ = fmt.Fprintln(w, "  No lectures today.")
		}
		writeSchedules(w, schedules)
		return nil
	}
	groups := portal.GroupByDay(schedules)
	if len(groups) == 0 {
		_, _ = fmt.Fprintln(w, "No schedule yet.")
	}
	for i, day := range groups {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintln(w, day.Day)
		writeSchedules(w, day.Items)
	}
	return nil
}

func writeSchedules(w io.Writer, items []api.Schedule) {
	for _, s := range items {
		_, _ = fmt.Fprintf(w, "  %-14s %s", s.Time, s.SubjectName)
		if s.Room != "" {
			_, _ = fmt.Fprintf(w, " (%s)", s.Room)
		}
		if s.Lecturer != "" {
			_, _ = fmt.Fprintf(w, " - %s", s.Lecturer)
		}
		_, _ = fmt.Fprintln(w)
	}
}

// Scope selects a class or a subject for list commands.
type Scope struct {
	Class   int `help:"Class ID." xor:"scope"`
	Subject int `help:"Subject ID." xor:"scope"`
}

// Validate requires exactly one of the two.
func (s *Scope) Validate() error {
	if (s.Class == 0) == (s.Subject == 0) {
		return errScope
	}
	return nil
}

// MaterialsCmd lists materials.
type MaterialsCmd struct {
	Scope `embed:""`
}

// Run executes the materials command.
func (c *MaterialsCmd) Run(g *Globals, w io.Writer) error {
	q := func(cat *portal.Catalog) query.Query[[]api.Material] { return cat.SubjectMaterials(c.Subject) }
	if c.Class != 0 {
		q = func(cat *portal.Catalog) query.Query[[]api.Material] { return cat.ClassroomMaterials(c.Class) }
	}
	materials, err := fetch(g, q)
	if err != nil {
		return err
	}
	if len(materials) == 0 {
		_, _ = fmt.Fprintln(w, "No materials yet.")
		return nil
	}
	rows := make([][]string, len(materials))
	for i, m := range materials {
		rows[i] = []string{strconv.Itoa(m.ID), m.Title, m.FileURL}
	}
	writeTable(w, []string{"ID", "Materi", "File"}, rows)
	return nil
}

// MaterialCmd shows one material.
type MaterialCmd struct {
	ID int `arg:"" help:"Material ID."`
}

// Run executes the material command.
func (c *MaterialCmd) Run(g *Globals, w io.Writer) error {
	m, err := fetch(g, func(cat *portal.Catalog) query.Query[api.Material] { return cat.Material(c.ID) })
	if err != nil {
		return err
	}
	writeFields(w, m.Title, [][2]string{
		{"Isi", m.Description},
		{"File", m.FileURL},
		{"Dibuat", m.CreatedAt},
	})
	return nil
}

// AssignmentsCmd lists assignments.
type AssignmentsCmd struct {
	Scope `embed:""`
}

// Run executes the assignments command.
func (c *AssignmentsCmd) Run(g *Globals, w io.Writer) error {
	q := func(cat *portal.Catalog) query.Query[[]api.Assignment] { return cat.SubjectAssignments(c.Subject) }
	if c.Class != 0 {
		q = func(cat *portal.Catalog) query.Query[[]api.Assignment] { return cat.ClassroomAssignments(c.Class) }
	}
	assignments, err := fetch(g, q)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		_, _ = fmt.Fprintln(w, "No assignments.")
		return nil
	}
	rows := make([][]string, len(assignments))
	for i, a := range assignments {
		rows[i] = []string{strconv.Itoa(a.ID), a.Title, a.SubjectName, a.Deadline, assignmentStatus(a)}
	}
	writeTable(w, []string{"ID", "Tugas", "Mata Kuliah", "Deadline", "Status"}, rows)
	return nil
}

func assignmentStatus(a api.Assignment) string {
	if a.IsOverdue {
		return "Terlambat"
	}
	return "Aktif"
}

// AssignmentCmd shows one assignment.
type AssignmentCmd struct {
	ID int `arg:"" help:"Assignment ID."`
}

// Run executes the assignment command.
func (c *AssignmentCmd) Run(g *Globals, w io.Writer) error {
	a, err := fetch(g, func(cat *portal.Catalog) query.Query[api.Assignment] { return cat.Assignment(c.ID) })
	if err != nil {
		return err
	}
	writeFields(w, a.Title, [][2]string{
		{"Mata Kuliah", a.SubjectName},
		{"Deadline", a.Deadline},
		{"Status", assignmentStatus(a)},
		{"Isi", a.Description},
		{"File", a.FileURL},
	})
	return nil
}

// AnnouncementsCmd shows announcements, newest first.
type AnnouncementsCmd struct {
	Limit int  `help:"How many to show." default:"3"`
	All   bool `help:"Show every announcement."`
}

// Run executes the announcements command.
func (c *AnnouncementsCmd) Run(g *Globals, w io.Writer) error {
	limit := c.Limit
	if c.All {
		limit = 0
	}
	items, err := fetch(g, func(cat *portal.Catalog) query.Query[[]api.Announcement] { return cat.Announcements(limit) })
	if err != nil {
		return err
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "No announcements.")
		return nil
	}
	for i, a := range items {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "[%s] %s", a.Type, a.Title)
		if a.Date != "" {
			_, _ = fmt.Fprintf(w, " (%s)", a.Date)
		}
		_, _ = fmt.Fprintln(w)
		if a.Content != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", a.Content)
		}
		if a.Author != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", a.Author)
		}
	}
	return nil
}
