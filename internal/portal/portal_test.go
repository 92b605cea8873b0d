package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/fakeapi"
	"github.com/infokelas/kelas/internal/query"
	"github.com/infokelas/kelas/internal/validate"
)

type tokenCreds string

func (t tokenCreds) Token() (string, error) { return string(t), nil }
func (tokenCreds) ClearCredentials() error  { return nil }

func setup(t *testing.T) (*Catalog, *query.Client, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := api.New(srv.URL+"/api", tokenCreds(fakeapi.DemoToken))
	cache := query.New()
	t.Cleanup(cache.Wait)
	return NewCatalog(client, DefaultStaleTimes()), cache, fake
}

func TestCatalog_ReadsWithinStaleTimeShareOneRequest(t *testing.T) {
	// Given a catalog over the fake portal
	cat, cache, fake := setup(t)
	ctx := context.Background()

	// When the class list is read twice
	first, err := query.Fetch(ctx, cache, cat.MyClassrooms())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second := query.Get(ctx, cache, cat.MyClassrooms())

	// Then one request served both
	if len(first) != 1 || len(second.Data) != 1 {
		t.Errorf("classes = %d / %d, want 1", len(first), len(second.Data))
	}
	if n := fake.Hits(http.MethodGet, "/my-classrooms"); n != 1 {
		t.Errorf("GET /my-classrooms hits = %d, want 1", n)
	}
}

func TestJoinClass_RejectedCodeLeavesClassroomsUntouched(t *testing.T) {
	// Given cached classrooms
	cat, cache, fake := setup(t)
	ctx := context.Background()
	if _, err := query.Fetch(ctx, cache, cat.MyClassrooms()); err != nil {
		t.Fatal(err)
	}

	// When joining with a code the server rejects
	_, err := cat.JoinClass().Exec(ctx, cache, "XY7A9")

	// Then the server message is surfaced verbatim
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("Exec() error = %v, want ErrValidation", err)
	}
	if got := api.Message(err); got != "Kode kelas tidak ditemukan." {
		t.Errorf("Message() = %q", got)
	}

	// And the class list is neither invalidated nor refetched
	if snap, _ := cache.Peek(MyClassroomsKey()); snap.Stale {
		t.Error("my-classrooms invalidated after failed join")
	}
	query.Get(ctx, cache, cat.MyClassrooms())
	if n := fake.Hits(http.MethodGet, "/my-classrooms"); n != 1 {
		t.Errorf("GET /my-classrooms hits = %d, want 1", n)
	}
	if n := fake.Hits(http.MethodPost, "/join-class"); n != 1 {
		t.Errorf("POST /join-class hits = %d, want exactly 1", n)
	}
}

func TestJoinClass_SuccessInvalidatesClassrooms(t *testing.T) {
	// Given cached classrooms
	cat, cache, _ := setup(t)
	ctx := context.Background()
	if _, err := query.Fetch(ctx, cache, cat.MyClassrooms()); err != nil {
		t.Fatal(err)
	}

	// When a valid code is joined
	msg, err := cat.JoinClass().Exec(ctx, cache, " "+fakeapi.OpenJoinCode+" ")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if msg != "Berhasil bergabung ke kelas TI-3B" {
		t.Errorf("message = %q", msg)
	}

	// Then the next read sees the new class
	classes, err := query.Fetch(ctx, cache, cat.MyClassrooms())
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 {
		t.Errorf("classes = %d, want 2", len(classes))
	}
}

func TestJoinClass_InvalidCodeNeverSent(t *testing.T) {
	cat, cache, fake := setup(t)

	_, err := cat.JoinClass().Exec(context.Background(), cache, "ab-12")

	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("Exec() error = %v, want *validate.Error", err)
	}
	if n := fake.Hits(http.MethodPost, "/join-class"); n != 0 {
		t.Errorf("POST /join-class hits = %d, want 0", n)
	}
}

func TestUpdateProfile_MergesEchoIntoCachedProfile(t *testing.T) {
	// Given a cached profile and an avatar on disk
	cat, cache, fake := setup(t)
	ctx := context.Background()
	if _, err := query.Fetch(ctx, cache, cat.Profile()); err != nil {
		t.Fatal(err)
	}
	avatar := filepath.Join(t.TempDir(), "ani.jpg")
	if err := os.WriteFile(avatar, []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}

	// When the name and avatar are changed
	_, err := cat.UpdateProfile().Exec(ctx, cache, ProfileEdit{Name: "Ani Lestari Putri", AvatarPath: avatar})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	// Then the cached profile shows the change and keeps the email
	res := query.Get(ctx, cache, cat.Profile())
	if res.Data.Name != "Ani Lestari Putri" || res.Data.Email != fakeapi.DemoEmail {
		t.Errorf("profile = %+v", res.Data)
	}
	if res.Data.AvatarURL == "" {
		t.Error("avatar url not merged")
	}
	if n := fake.Hits(http.MethodGet, "/profile"); n != 1 {
		t.Errorf("GET /profile hits = %d, want 1", n)
	}
}

func TestSchedules_ResourceInvalidationCoversToday(t *testing.T) {
	// Given both schedule views cached
	cat, cache, fake := setup(t)
	ctx := context.Background()
	for _, q := range []query.Query[[]api.Schedule]{cat.Schedules(), cat.TodaySchedules()} {
		if _, err := query.Fetch(ctx, cache, q); err != nil {
			t.Fatal(err)
		}
	}

	// When the schedules resource is invalidated
	if n := cache.Invalidate(SchedulesKey()); n != 2 {
		t.Errorf("Invalidate() = %d, want 2", n)
	}

	// Then both views fetch again
	for _, q := range []query.Query[[]api.Schedule]{cat.Schedules(), cat.TodaySchedules()} {
		if _, err := query.Fetch(ctx, cache, q); err != nil {
			t.Fatal(err)
		}
	}
	if n := fake.Hits(http.MethodGet, "/schedules"); n != 4 {
		t.Errorf("GET /schedules hits = %d, want 4", n)
	}
}

func TestAnnouncements_LimitedAndAllAreSeparate(t *testing.T) {
	cat := NewCatalog(nil, DefaultStaleTimes())

	limited, all := cat.Announcements(DashboardAnnouncements), cat.Announcements(0)

	if limited.Key.Equal(all.Key) {
		t.Error("limited and full announcements share a key")
	}
	if limited.StaleTime != 5*time.Minute || all.StaleTime != time.Minute {
		t.Errorf("stale times = %v / %v", limited.StaleTime, all.StaleTime)
	}
	if !all.Key.HasPrefix(query.NewKey("announcements")) || !limited.Key.HasPrefix(query.NewKey("announcements")) {
		t.Error("announcement keys not under the announcements resource")
	}
}

func TestGroupByDay(t *testing.T) {
	in := []api.Schedule{
		{ID: 1, Day: "Rabu"},
		{ID: 2, Day: "Senin"},
		{ID: 3, Day: "Minggu"},
		{ID: 4, Day: "Senin"},
		{ID: 5, Day: "Funday"},
	}

	got := GroupByDay(in)

	wantDays := []string{"Senin", "Rabu", "Minggu"}
	if len(got) != len(wantDays) {
		t.Fatalf("groups = %+v", got)
	}
	for i, d := range wantDays {
		if got[i].Day != d {
			t.Errorf("group %d = %s, want %s", i, got[i].Day, d)
		}
	}
	if got[0].Items[0].ID != 2 || got[0].Items[1].ID != 4 {
		t.Errorf("Senin order = %+v", got[0].Items)
	}
	if GroupByDay(nil) != nil {
		t.Error("GroupByDay(nil) != nil")
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "Selamat Pagi"},
		{11, "Selamat Pagi"},
		{12, "Selamat Siang"},
		{14, "Selamat Siang"},
		{15, "Selamat Sore"},
		{17, "Selamat Sore"},
		{18, "Selamat Malam"},
		{23, "Selamat Malam"},
	}
	for _, tt := range tests {
		at := time.Date(2024, 9, 2, tt.hour, 30, 0, 0, time.Local)
		if got := Greeting(at); got != tt.want {
			t.Errorf("Greeting(%02d:30) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestMergeUser(t *testing.T) {
	base := api.User{ID: 1, Name: "Ani", Email: "ani@x.id", NIM: "1"}
	got := MergeUser(base, api.User{Email: "ani@y.id"})
	want := api.User{ID: 1, Name: "Ani", Email: "ani@y.id", NIM: "1"}
	if got != want {
		t.Errorf("MergeUser() = %+v, want %+v", got, want)
	}
}

func TestDayName(t *testing.T) {
	mon := time.Date(2024, 9, 2, 8, 0, 0, 0, time.Local)
	for i, want := range Days {
		if got := DayName(mon.AddDate(0, 0, i)); got != want {
			t.Errorf("DayName(+%d) = %q, want %q", i, got, want)
		}
	}
}
