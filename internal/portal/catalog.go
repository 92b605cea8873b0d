// Package portal declares the portal's cached reads and writes: their query
// keys, stale times, fetchers and cache reconciliation.
package portal

import (
	"context"
	"time"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/query"
)

// DashboardAnnouncements is how many announcements the home page previews.
const DashboardAnnouncements = 3

// Query keys. Each resource name is also the prefix that invalidates every
// parameterization of it.
func ProfileKey() query.Key      { return query.NewKey("profile") }
func MyClassroomsKey() query.Key { return query.NewKey("my-classrooms") }
func SchedulesKey() query.Key    { return query.NewKey("schedules") }

func TodaySchedulesKey() query.Key {
	return query.NewKey("schedules", map[string]any{"today": true})
}
func ClassroomKey(id int) query.Key { return query.NewKey("classroom", id) }
func ClassroomSubjectsKey(id int) query.Key {
	return query.NewKey("classroom-subjects", id)
}
func ClassroomAssignmentsKey(id int) query.Key {
	return query.NewKey("classroom-assignments", id)
}
func ClassroomMaterialsKey(id int) query.Key {
	return query.NewKey("classroom-materials", id)
}
func SubjectMaterialsKey(id int) query.Key {
	return query.NewKey("subject-materials", id)
}
func SubjectAssignmentsKey(id int) query.Key {
	return query.NewKey("subject-assignments", id)
}
func MaterialKey(id int) query.Key   { return query.NewKey("material", id) }
func AssignmentKey(id int) query.Key { return query.NewKey("assignment", id) }

// AnnouncementsKey keys a limited list apart from the full one so the two
// caches never overwrite each other. limit <= 0 means all.
func AnnouncementsKey(limit int) query.Key {
	if limit <= 0 {
		return query.NewKey("announcements", "all")
	}
	return query.NewKey("announcements", map[string]any{"limit": limit})
}

// StaleTimes configures how long each group of reads stays fresh.
type StaleTimes struct {
	Default       time.Duration
	Profile       time.Duration
	Announcements time.Duration // Limited announcement previews.
}

// DefaultStaleTimes matches the portal web client.
func DefaultStaleTimes() StaleTimes {
	return StaleTimes{Default: time.Minute, Profile: time.Minute, Announcements: 5 * time.Minute}
}

// Catalog builds the portal queries against one API client.
type Catalog struct {
	api   *api.Client
	stale StaleTimes
}

// NewCatalog returns a Catalog.
func NewCatalog(client *api.Client, stale StaleTimes) *Catalog {
	return &Catalog{api: client, stale: stale}
}

func (c *Catalog) Profile() query.Query[api.User] {
	return query.Query[api.User]{Key: ProfileKey(), Fetch: c.api.Profile, StaleTime: c.stale.Profile}
}

func (c *Catalog) MyClassrooms() query.Query[[]api.Classroom] {
	return query.Query[[]api.Classroom]{Key: MyClassroomsKey(), Fetch: c.api.MyClassrooms, StaleTime: c.stale.Default}
}

func (c *Catalog) Classroom(id int) query.Query[api.Classroom] {
	return query.Query[api.Classroom]{
		Key:       ClassroomKey(id),
		Fetch:     func(ctx context.Context) (api.Classroom, error) { return c.api.Classroom(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) ClassroomSubjects(id int) query.Query[[]api.Subject] {
	return query.Query[[]api.Subject]{
		Key:       ClassroomSubjectsKey(id),
		Fetch:     func(ctx context.Context) ([]api.Subject, error) { return c.api.ClassroomSubjects(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) ClassroomAssignments(id int) query.Query[[]api.Assignment] {
	return query.Query[[]api.Assignment]{
		Key:       ClassroomAssignmentsKey(id),
		Fetch:     func(ctx context.Context) ([]api.Assignment, error) { return c.api.ClassroomAssignments(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) ClassroomMaterials(id int) query.Query[[]api.Material] {
	return query.Query[[]api.Material]{
		Key:       ClassroomMaterialsKey(id),
		Fetch:     func(ctx context.Context) ([]api.Material, error) { return c.api.ClassroomMaterials(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) SubjectMaterials(id int) query.Query[[]api.Material] {
	return query.Query[[]api.Material]{
		Key:       SubjectMaterialsKey(id),
		Fetch:     func(ctx context.Context) ([]api.Material, error) { return c.api.SubjectMaterials(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) SubjectAssignments(id int) query.Query[[]api.Assignment] {
	return query.Query[[]api.Assignment]{
		Key:       SubjectAssignmentsKey(id),
		Fetch:     func(ctx context.Context) ([]api.Assignment, error) { return c.api.SubjectAssignments(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) Material(id int) query.Query[api.Material] {
	return query.Query[api.Material]{
		Key:       MaterialKey(id),
		Fetch:     func(ctx context.Context) (api.Material, error) { return c.api.Material(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) Assignment(id int) query.Query[api.Assignment] {
	return query.Query[api.Assignment]{
		Key:       AssignmentKey(id),
		Fetch:     func(ctx context.Context) (api.Assignment, error) { return c.api.Assignment(ctx, id) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) Schedules() query.Query[[]api.Schedule] {
	return query.Query[[]api.Schedule]{
		Key:       SchedulesKey(),
		Fetch:     func(ctx context.Context) ([]api.Schedule, error) { return c.api.Schedules(ctx, false) },
		StaleTime: c.stale.Default,
	}
}

func (c *Catalog) TodaySchedules() query.Query[[]api.Schedule] {
	return query.Query[[]api.Schedule]{
		Key:       TodaySchedulesKey(),
		Fetch:     func(ctx context.Context) ([]api.Schedule, error) { return c.api.Schedules(ctx, true) },
		StaleTime: c.stale.Default,
	}
}

// Announcements lists announcements; limit <= 0 lists all. Limited previews
// use the longer announcements stale time.
func (c *Catalog) Announcements(limit int) query.Query[[]api.Announcement] {
	stale := c.stale.Default
	if limit > 0 {
		stale = c.stale.Announcements
	}
	return query.Query[[]api.Announcement]{
		Key:       AnnouncementsKey(limit),
		Fetch:     func(ctx context.Context) ([]api.Announcement, error) { return c.api.Announcements(ctx, limit) },
		StaleTime: stale,
	}
}
