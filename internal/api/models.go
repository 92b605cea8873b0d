package api

// User is the signed-in student.
type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	NIM       string `json:"nim,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Teacher is the class administrator shown on a classroom.
type Teacher struct {
	Name string `json:"name"`
}

// Classroom is a class the student belongs to.
type Classroom struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Code       string   `json:"code,omitempty"`
	University string   `json:"university,omitempty"`
	Major      string   `json:"major,omitempty"`
	Semester   string   `json:"semester,omitempty"`
	Teacher    *Teacher `json:"teacher,omitempty"`
}

// Subject is a course inside a classroom.
type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Assignment is a task with a deadline.
type Assignment struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	IsOverdue   bool   `json:"is_overdue"`
	SubjectName string `json:"subject_name,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
}

// Schedule is one weekly lecture slot.
type Schedule struct {
	ID          int    `json:"id"`
	Day         string `json:"day"`
	Time        string `json:"time"`
	SubjectName string `json:"subject_name"`
	Room        string `json:"room,omitempty"`
	Lecturer    string `json:"lecturer,omitempty"`
}

// Material is a course handout.
type Material struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Announcement types.
const (
	AnnouncementInfo    = "info"
	AnnouncementWarning = "warning"
	AnnouncementDanger  = "danger"
)

// Announcement is a notice from the campus or class admin.
type Announcement struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Date      string `json:"date,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Author    string `json:"author,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Session is the data of a successful login.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
