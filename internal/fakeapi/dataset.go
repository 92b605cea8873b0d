package fakeapi

import "github.com/infokelas/kelas/internal/api"

// Account is a user with login secrets.
type Account struct {
	User     api.User
	Password string
	Token    string // Pre-issued token, optional.
	Archived bool   // Archived accounts get 403 on every authenticated call.
}

// SubjectRecord places a subject in a classroom.
type SubjectRecord struct {
	ClassroomID int
	api.Subject
}

// MaterialRecord places a material in a subject.
type MaterialRecord struct {
	SubjectID int
	api.Material
}

// AssignmentRecord places an assignment in a subject.
type AssignmentRecord struct {
	SubjectID int
	api.Assignment
}

// ScheduleRecord places a schedule slot in a classroom.
type ScheduleRecord struct {
	ClassroomID int
	api.Schedule
}

// Dataset is the in-memory state the server starts from.
type Dataset struct {
	Accounts      []Account
	Classrooms    []api.Classroom
	Subjects      []SubjectRecord
	Materials     []MaterialRecord
	Assignments   []AssignmentRecord
	Schedules     []ScheduleRecord
	Announcements []api.Announcement // Newest first.
	Memberships   map[int][]int      // User ID to classroom IDs.
}

// Demo identities in Seed.
const (
	DemoEmail    = "ani@student.kampus.ac.id"
	DemoNIM      = "2201001"
	DemoPassword = "rahasia123"
	DemoToken    = "demo-token"
	ArchivedNIM  = "1901999"
	OpenJoinCode = "TI3B24"
	DemoOTP      = "246810"
)

// Seed returns a small campus: one student in one class, a second class
// joinable with OpenJoinCode, and an archived account.
func Seed() Dataset {
	return Dataset{
		Accounts: []Account{
			{
				User:     api.User{ID: 1, Name: "Ani Lestari", Email: DemoEmail, NIM: DemoNIM},
				Password: DemoPassword,
				Token:    DemoToken,
			},
			{
				User:     api.User{ID: 2, Name: "Rudi Hartono", Email: "rudi@student.kampus.ac.id", NIM: ArchivedNIM},
				Password: DemoPassword,
				Archived: true,
			},
		},
		Classrooms: []api.Classroom{
			{ID: 1, Name: "TI-3A", Code: "TI3A24", University: "Universitas Nusantara", Major: "Teknik Informatika", Semester: "5", Teacher: &api.Teacher{Name: "Dewi Kartika"}},
			{ID: 2, Name: "TI-3B", Code: OpenJoinCode, University: "Universitas Nusantara", Major: "Teknik Informatika", Semester: "5", Teacher: &api.Teacher{Name: "Agus Salim"}},
		},
		Subjects: []SubjectRecord{
			{ClassroomID: 1, Subject: api.Subject{ID: 10, Name: "Basis Data", Code: "IF301"}},
			{ClassroomID: 1, Subject: api.Subject{ID: 11, Name: "Jaringan Komputer", Code: "IF305"}},
			{ClassroomID: 2, Subject: api.Subject{ID: 20, Name: "Pemrograman Web", Code: "IF310"}},
		},
		Materials: []MaterialRecord{
			{SubjectID: 10, Material: api.Material{ID: 100, Title: "Normalisasi", Description: "1NF sampai BCNF", FileURL: "https://files.kampus.ac.id/normalisasi.pdf", FilePath: "materials/normalisasi.pdf", CreatedAt: "2024-09-02T08:00:00Z"}},
			{SubjectID: 10, Material: api.Material{ID: 101, Title: "SQL Join", Description: "Inner, outer dan cross join", CreatedAt: "2024-09-09T08:00:00Z"}},
			{SubjectID: 11, Material: api.Material{ID: 110, Title: "Model OSI", FileURL: "https://files.kampus.ac.id/osi.pdf", CreatedAt: "2024-09-03T10:00:00Z"}},
		},
		Assignments: []AssignmentRecord{
			{SubjectID: 10, Assignment: api.Assignment{ID: 200, Title: "Rancang ERD Perpustakaan", Description: "Buat ERD lengkap dengan kardinalitas.", Deadline: "2024-09-20T23:59:00Z", SubjectName: "Basis Data"}},
			{SubjectID: 11, Assignment: api.Assignment{ID: 201, Title: "Subnetting", Description: "Kerjakan soal subnetting kelas C.", Deadline: "2024-09-01T23:59:00Z", IsOverdue: true, SubjectName: "Jaringan Komputer"}},
		},
		Schedules: []ScheduleRecord{
			{ClassroomID: 1, Schedule: api.Schedule{ID: 300, Day: "Senin", Time: "08:00 - 09:40", SubjectName: "Basis Data", Room: "Lab 2", Lecturer: "Dewi Kartika"}},
			{ClassroomID: 1, Schedule: api.Schedule{ID: 301, Day: "Rabu", Time: "10:00 - 11:40", SubjectName: "Jaringan Komputer", Room: "R. 304", Lecturer: "Bambang Wijaya"}},
			{ClassroomID: 1, Schedule: api.Schedule{ID: 302, Day: "Senin", Time: "13:00 - 14:40", SubjectName: "Jaringan Komputer", Room: "Lab 1", Lecturer: "Bambang Wijaya"}},
			{ClassroomID: 2, Schedule: api.Schedule{ID: 303, Day: "Selasa", Time: "08:00 - 09:40", SubjectName: "Pemrograman Web", Room: "Lab 3", Lecturer: "Agus Salim"}},
		},
		Announcements: []api.Announcement{
			{ID: 403, Title: "Libur Maulid Nabi", Content: "Perkuliahan diliburkan pada tanggal 16 September.", Type: api.AnnouncementInfo, Date: "2024-09-10", Author: "BAAK"},
			{ID: 402, Title: "Batas KRS", Content: "Pengisian KRS ditutup hari Jumat.", Type: api.AnnouncementWarning, Date: "2024-09-06", Author: "BAAK"},
			{ID: 401, Title: "Pemadaman Listrik", Content: "Gedung B padam pukul 13.00 sampai 15.00.", Type: api.AnnouncementDanger, Date: "2024-09-04", Author: "Sarpras"},
			{ID: 400, Title: "Selamat Datang", Content: "Selamat datang di semester ganjil.", Type: api.AnnouncementInfo, Date: "2024-09-01", Author: "Rektorat"},
		},
		Memberships: map[int][]int{1: {1}, 2: {1}},
	}
}
