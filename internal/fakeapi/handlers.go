package fakeapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/infokelas/kelas/internal/api"
)

var dayNames = [...]string{
	time.Sunday:    "Minggu",
	time.Monday:    "Senin",
	time.Tuesday:   "Selasa",
	time.Wednesday: "Rabu",
	time.Thursday:  "Kamis",
	time.Friday:    "Jumat",
	time.Saturday:  "Sabtu",
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type resetRequest struct {
	Identifier           string `json:"identifier"`
	OTP                  string `json:"otp"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// --- lookups, called with s.mu held ---

func (s *Server) accountByID(id int) (*Account, bool) {
	for i := range s.data.Accounts {
		if s.data.Accounts[i].User.ID == id {
			return &s.data.Accounts[i], true
		}
	}
	return nil, false
}

func (s *Server) accountByIdentifier(identifier string) (*Account, bool) {
	identifier = strings.TrimSpace(identifier)
	for i := range s.data.Accounts {
		u := s.data.Accounts[i].User
		if strings.EqualFold(u.Email, identifier) || (u.NIM != "" && u.NIM == identifier) {
			return &s.data.Accounts[i], true
		}
	}
	return nil, false
}

func (s *Server) isMember(userID, classroomID int) bool {
	return slices.Contains(s.data.Memberships[userID], classroomID)
}

func (s *Server) memberSubject(userID, subjectID int) bool {
	for _, sub := range s.data.Subjects {
		if sub.ID == subjectID {
			return s.isMember(userID, sub.ClassroomID)
		}
	}
	return false
}

func (s *Server) subjectName(subjectID int) string {
	for _, sub := range s.data.Subjects {
		if sub.ID == subjectID {
			return sub.Name
		}
	}
	return ""
}

func currentUser(c echo.Context) int {
	id, _ := c.Get(userKey).(int)
	return id
}

func intParam(c echo.Context, name string) (int, error) {
	v := c.Param(name)
	if v == "" {
		v = c.QueryParam(name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalid(fmt.Sprintf("Parameter %s tidak valid.", name))
	}
	return n, nil
}

// --- auth ---

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return invalid("Format permintaan tidak valid.")
	}
	if req.Identifier == "" || req.Password == "" {
		return invalid("Email/NIM dan password wajib diisi.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.accountByIdentifier(req.Identifier)
	if !found || acc.Password != req.Password {
		return invalid("Email/NIM atau password salah.")
	}
	if acc.Archived {
		return errArchived
	}
	token := uuid.NewString()
	s.tokens[token] = acc.User.ID
	return respond(c, "Login berhasil", api.Session{Token: token, User: acc.User})
}

func (s *Server) logout(c echo.Context) error {
	token, _ := c.Get("token").(string)
	s.Revoke(token)
	return respond(c, "Logout berhasil", nil)
}

func (s *Server) forgotPassword(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Identifier == "" {
		return invalid("Email/NIM wajib diisi.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.accountByIdentifier(req.Identifier)
	if !found {
		return notFound("Akun tidak ditemukan.")
	}
	s.otps[acc.User.Email] = DemoOTP
	return respond(c, "Kode OTP telah dikirim ke WhatsApp Anda.", nil)
}

func (s *Server) resetPassword(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return invalid("Format permintaan tidak valid.")
	}
	if req.Password != req.PasswordConfirmation {
		return invalid("Konfirmasi password tidak cocok.")
	}
	if len(req.Password) < 8 {
		return invalid("Password minimal 8 karakter.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.accountByIdentifier(req.Identifier)
	if !found || s.otps[acc.User.Email] == "" || s.otps[acc.User.Email] != req.OTP {
		return invalid("Kode OTP salah atau kadaluarsa.")
	}
	delete(s.otps, acc.User.Email)
	acc.Password = req.Password
	return respond(c, "Password berhasil direset. Silakan login.", nil)
}

func (s *Server) profile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, _ := s.accountByID(currentUser(c))
	return respond(c, "", acc.User)
}

// updateProfile accepts multipart name, email and avatar, and echoes the
// changed fields.
func (s *Server) updateProfile(c echo.Context) error {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "Gunakan multipart/form-data.")
	}
	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.TrimSpace(c.FormValue("email"))
	if email != "" && !strings.Contains(email, "@") {
		return invalid("Format email tidak valid.")
	}
	var avatar string
	if fh, err := c.FormFile("avatar"); err == nil {
		avatar = "https://files.kampus.ac.id/avatars/" + filepath.Base(fh.Filename)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, _ := s.accountByID(currentUser(c))
	echoed := api.User{ID: acc.User.ID}
	if name != "" {
		acc.User.Name, echoed.Name = name, name
	}
	if email != "" {
		acc.User.Email, echoed.Email = email, email
	}
	if avatar != "" {
		acc.User.AvatarURL, echoed.AvatarURL = avatar, avatar
	}
	return respond(c, "Profil berhasil diperbarui", echoed)
}

// --- classrooms ---

func (s *Server) myClassrooms(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.Classroom{}
	for _, cls := range s.data.Classrooms {
		if s.isMember(currentUser(c), cls.ID) {
			out = append(out, cls)
		}
	}
	return respond(c, "", out)
}

func (s *Server) joinClass(c echo.Context) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return invalid("Kode kelas wajib diisi.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user := currentUser(c)
	for _, cls := range s.data.Classrooms {
		if !strings.EqualFold(cls.Code, strings.TrimSpace(req.Code)) {
			continue
		}
		if s.isMember(user, cls.ID) {
			return invalid("Anda sudah bergabung di kelas ini.")
		}
		s.data.Memberships[user] = append(s.data.Memberships[user], cls.ID)
		return respond(c, "Berhasil bergabung ke kelas "+cls.Name, cls)
	}
	return invalid("Kode kelas tidak ditemukan.")
}

// memberClassroom resolves :id and checks membership. Called with s.mu held.
func (s *Server) memberClassroom(c echo.Context) (api.Classroom, error) {
	id, err := intParam(c, "id")
	if err != nil {
		return api.Classroom{}, err
	}
	for _, cls := range s.data.Classrooms {
		if cls.ID == id && s.isMember(currentUser(c), id) {
			return cls, nil
		}
	}
	return api.Classroom{}, notFound("Kelas tidak ditemukan.")
}

func (s *Server) classroom(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, err := s.memberClassroom(c)
	if err != nil {
		return err
	}
	return respond(c, "", cls)
}

func (s *Server) classroomSubjects(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, err := s.memberClassroom(c)
	if err != nil {
		return err
	}
	out := []api.Subject{}
	for _, sub := range s.data.Subjects {
		if sub.ClassroomID == cls.ID {
			out = append(out, sub.Subject)
		}
	}
	return respond(c, "", out)
}

func (s *Server) classroomAssignments(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, err := s.memberClassroom(c)
	if err != nil {
		return err
	}
	out := []api.Assignment{}
	for _, a := range s.data.Assignments {
		if s.subjectIn(a.SubjectID, cls.ID) {
			out = append(out, s.withSubject(a))
		}
	}
	return respond(c, "", out)
}

func (s *Server) classroomMaterials(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, err := s.memberClassroom(c)
	if err != nil {
		return err
	}
	out := []api.Material{}
	for _, m := range s.data.Materials {
		if s.subjectIn(m.SubjectID, cls.ID) {
			out = append(out, m.Material)
		}
	}
	return respond(c, "", out)
}

func (s *Server) subjectIn(subjectID, classroomID int) bool {
	for _, sub := range s.data.Subjects {
		if sub.ID == subjectID {
			return sub.ClassroomID == classroomID
		}
	}
	return false
}

func (s *Server) withSubject(a AssignmentRecord) api.Assignment {
	out := a.Assignment
	if out.SubjectName == "" {
		out.SubjectName = s.subjectName(a.SubjectID)
	}
	return out
}

// --- schedules, materials, assignments, announcements ---

func (s *Server) schedules(c echo.Context) error {
	today := c.QueryParam("today") == "true"
	day := dayNames[s.now().Weekday()]

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.Schedule{}
	for _, sch := range s.data.Schedules {
		if !s.isMember(currentUser(c), sch.ClassroomID) {
			continue
		}
		if today && sch.Day != day {
			continue
		}
		out = append(out, sch.Schedule)
	}
	return respond(c, "", out)
}

func (s *Server) subjectMaterials(c echo.Context) error {
	subjectID, err := intParam(c, "subject_id")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.memberSubject(currentUser(c), subjectID) {
		return notFound("Mata kuliah tidak ditemukan.")
	}
	out := []api.Material{}
	for _, m := range s.data.Materials {
		if m.SubjectID == subjectID {
			out = append(out, m.Material)
		}
	}
	return respond(c, "", out)
}

func (s *Server) material(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.data.Materials {
		if m.ID == id && s.memberSubject(currentUser(c), m.SubjectID) {
			return respond(c, "", m.Material)
		}
	}
	return notFound("Materi tidak ditemukan.")
}

func (s *Server) subjectAssignments(c echo.Context) error {
	subjectID, err := intParam(c, "subject_id")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.memberSubject(currentUser(c), subjectID) {
		return notFound("Mata kuliah tidak ditemukan.")
	}
	out := []api.Assignment{}
	for _, a := range s.data.Assignments {
		if a.SubjectID == subjectID {
			out = append(out, s.withSubject(a))
		}
	}
	return respond(c, "", out)
}

func (s *Server) assignment(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.data.Assignments {
		if a.ID == id && s.memberSubject(currentUser(c), a.SubjectID) {
			return respond(c, "", echo.Map{"assignment": s.withSubject(a)})
		}
	}
	return notFound("Tugas tidak ditemukan.")
}

func (s *Server) announcements(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return invalid("Parameter limit tidak valid.")
		}
		limit = n
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]api.Announcement{}, s.data.Announcements...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return respond(c, "", out)
}
