package api

import (
	"context"
	"fmt"
	"strconv"
)

// MyClassrooms lists the classes the student has joined.
func (c *Client) MyClassrooms(ctx context.Context) ([]Classroom, error) {
	return get[[]Classroom](ctx, c, "/my-classrooms", nil)
}

// Classroom returns one class.
func (c *Client) Classroom(ctx context.Context, id int) (Classroom, error) {
	return get[Classroom](ctx, c, fmt.Sprintf("/classrooms/%d", id), nil)
}

// ClassroomSubjects lists the courses of a class.
func (c *Client) ClassroomSubjects(ctx context.Context, id int) ([]Subject, error) {
	return get[[]Subject](ctx, c, fmt.Sprintf("/classrooms/%d/subjects", id), nil)
}

// ClassroomAssignments lists the active assignments of a class.
func (c *Client) ClassroomAssignments(ctx context.Context, id int) ([]Assignment, error) {
	return get[[]Assignment](ctx, c, fmt.Sprintf("/classrooms/%d/assignments", id), nil)
}

// ClassroomMaterials lists every material of a class.
func (c *Client) ClassroomMaterials(ctx context.Context, id int) ([]Material, error) {
	return get[[]Material](ctx, c, fmt.Sprintf("/classrooms/%d/materials", id), nil)
}

// JoinClass joins the class with the given code and returns the server message.
func (c *Client) JoinClass(ctx context.Context, code string) (string, error) {
	_, msg, err := post[struct{}](ctx, c, "/join-class", map[string]string{"code": code})
	return msg, err
}

// Schedules lists the weekly timetable, or only today's slots.
func (c *Client) Schedules(ctx context.Context, today bool) ([]Schedule, error) {
	var q map[string]string
	if today {
		q = map[string]string{"today": "true"}
	}
	return get[[]Schedule](ctx, c, "/schedules", q)
}

// SubjectMaterials lists the materials of a course.
func (c *Client) SubjectMaterials(ctx context.Context, subjectID int) ([]Material, error) {
	return get[[]Material](ctx, c, "/materials", map[string]string{"subject_id": strconv.Itoa(subjectID)})
}

// Material returns one material.
func (c *Client) Material(ctx context.Context, id int) (Material, error) {
	return get[Material](ctx, c, fmt.Sprintf("/materials/%d", id), nil)
}

// SubjectAssignments lists the assignments of a course.
func (c *Client) SubjectAssignments(ctx context.Context, subjectID int) ([]Assignment, error) {
	return get[[]Assignment](ctx, c, "/assignments", map[string]string{"subject_id": strconv.Itoa(subjectID)})
}

// Assignment returns one assignment. The server nests it under "assignment".
func (c *Client) Assignment(ctx context.Context, id int) (Assignment, error) {
	wrapped, err := get[struct {
		Assignment Assignment `json:"assignment"`
	}](ctx, c, fmt.Sprintf("/assignments/%d", id), nil)
	return wrapped.Assignment, err
}

// Announcements lists announcements, newest first. limit <= 0 returns all.
func (c *Client) Announcements(ctx context.Context, limit int) ([]Announcement, error) {
	var q map[string]string
	if limit > 0 {
		q = map[string]string{"limit": strconv.Itoa(limit)}
	}
	return get[[]Announcement](ctx, c, "/announcements", q)
}
