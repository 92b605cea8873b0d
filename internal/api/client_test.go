package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/fakeapi"
)

// memCreds is an in-memory CredentialStore.
type memCreds struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (m *memCreds) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memCreds) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.cleared++
	return nil
}

func setup(t *testing.T, token string, opts ...api.Option) (*api.Client, *fakeapi.Server, *memCreds) {
	t.Helper()
	fake := fakeapi.New()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	creds := &memCreds{token: token}
	return api.New(srv.URL+"/api", creds, opts...), fake, creds
}

func TestClient_SendsTokenAndRequestID(t *testing.T) {
	// Given a signed-in client
	client, fake, _ := setup(t, fakeapi.DemoToken)

	// When the profile is requested
	u, err := client.Profile(context.Background())

	// Then the envelope data is decoded
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if u.Email != fakeapi.DemoEmail {
		t.Errorf("Email = %q, want %q", u.Email, fakeapi.DemoEmail)
	}

	// And the request carried bearer auth, a request ID and JSON accept
	reqs := fake.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	h := reqs[0].Header
	if got := h.Get("Authorization"); got != "Bearer "+fakeapi.DemoToken {
		t.Errorf("Authorization = %q", got)
	}
	if _, err := uuid.Parse(h.Get(api.RequestIDHeader)); err != nil {
		t.Errorf("X-Request-ID = %q is not a UUID", h.Get(api.RequestIDHeader))
	}
	if got := h.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	// Given a signed-out client
	client, fake, _ := setup(t, "")

	// When a public endpoint is called
	if _, err := client.RequestOTP(context.Background(), fakeapi.DemoNIM); err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}

	// Then no Authorization header is sent
	if got := fake.Requests()[0].Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestClient_UnauthorizedClearsCredentialsThenRunsHooks(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "expired token", token: "expired", status: http.StatusUnauthorized},
		{name: "archived account", token: "", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a client whose session the server rejects
			var creds *memCreds
			var clearedBeforeHook bool
			hook := func() { clearedBeforeHook = creds.cleared == 1 }
			client, fake, c := setup(t, tt.token, api.WithUnauthorizedHook(hook))
			creds = c
			if tt.status == http.StatusForbidden {
				fake.FailNext(http.MethodGet, "/profile", http.StatusForbidden, "Akun Anda telah diarsipkan.", 1)
			}

			// When an authenticated call is made
			_, err := client.Profile(context.Background())

			// Then it fails with an auth error after clearing credentials
			if !errors.Is(err, api.ErrAuth) {
				t.Fatalf("Profile() error = %v, want ErrAuth", err)
			}
			var apiErr *api.Error
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Errorf("status = %v, want %d", apiErr, tt.status)
			}
			if creds.cleared != 1 {
				t.Errorf("cleared = %d, want 1", creds.cleared)
			}
			if !clearedBeforeHook {
				t.Error("hook ran before credentials were cleared")
			}
			if apiErr.Retryable() {
				t.Error("auth error is retryable")
			}
			if got := api.Message(err); got != "please log in again" {
				t.Errorf("Message() = %q", got)
			}
		})
	}
}

func TestClient_ValidationMessageVerbatim(t *testing.T) {
	// Given a signed-in client
	client, _, creds := setup(t, fakeapi.DemoToken)

	// When joining with an unknown code
	_, err := client.JoinClass(context.Background(), "XY7A9")

	// Then the server message is surfaced as is and the session kept
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("JoinClass() error = %v, want ErrValidation", err)
	}
	if got := api.Message(err); got != "Kode kelas tidak ditemukan." {
		t.Errorf("Message() = %q", got)
	}
	var apiErr *api.Error
	errors.As(err, &apiErr)
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Retryable() {
		t.Errorf("Error = %+v", apiErr)
	}
	if creds.cleared != 0 {
		t.Error("credentials cleared on validation error")
	}
}

func TestClient_ServerErrorIsRetryable(t *testing.T) {
	// Given a server failing once
	client, fake, _ := setup(t, fakeapi.DemoToken)
	fake.FailNext(http.MethodGet, "/schedules", http.StatusInternalServerError, "Server Error", 1)

	// When schedules are requested
	_, err := client.Schedules(context.Background(), false)

	// Then the error is a retryable server error
	if !errors.Is(err, api.ErrServer) {
		t.Fatalf("Schedules() error = %v, want ErrServer", err)
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr); !apiErr.Retryable() {
		t.Error("server error not retryable")
	}

	// And the next call succeeds
	if _, err := client.Schedules(context.Background(), false); err != nil {
		t.Errorf("second Schedules() error = %v", err)
	}
}

func TestClient_NetworkErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		// Given a server that is gone
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		client := api.New(url, &memCreds{token: "t"})

		// When a call is made
		_, err := client.Profile(context.Background())

		// Then it is a retryable network error
		if !errors.Is(err, api.ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
		var apiErr *api.Error
		if errors.As(err, &apiErr); !apiErr.Retryable() {
			t.Error("network error not retryable")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		// Given a server slower than the client timeout
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })
		client := api.New(srv.URL, &memCreds{}, api.WithTimeout(50*time.Millisecond))

		// When a call is made
		_, err := client.Profile(context.Background())

		// Then it times out as a network error
		if !errors.Is(err, api.ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
	})
}

func TestClient_UpdateProfileIsMultipart(t *testing.T) {
	// Given a signed-in client
	client, fake, _ := setup(t, fakeapi.DemoToken)

	// When the profile is updated with an avatar
	u, err := client.UpdateProfile(context.Background(), api.ProfileUpdate{
		Name:       "Ani L.",
		Avatar:     strings.NewReader("\x89PNG fake"),
		AvatarName: "me.png",
	})

	// Then the server echo comes back
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if u.Name != "Ani L." || !strings.HasSuffix(u.AvatarURL, "/me.png") {
		t.Errorf("UpdateProfile() = %+v", u)
	}
	if u.Email != "" {
		t.Errorf("Email echoed = %q, want empty for unchanged field", u.Email)
	}

	// And the body was multipart with a boundary set by the client
	ct := fake.Requests()[0].Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") || !strings.Contains(ct, "boundary=") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestClient_Endpoints(t *testing.T) {
	client, fake, _ := setup(t, fakeapi.DemoToken)
	ctx := context.Background()

	classes, err := client.MyClassrooms(ctx)
	if err != nil || len(classes) != 1 || classes[0].Teacher == nil {
		t.Fatalf("MyClassrooms() = %+v, %v", classes, err)
	}
	subjects, err := client.ClassroomSubjects(ctx, classes[0].ID)
	if err != nil || len(subjects) != 2 {
		t.Fatalf("ClassroomSubjects() = %+v, %v", subjects, err)
	}
	mats, err := client.SubjectMaterials(ctx, subjects[0].ID)
	if err != nil || len(mats) != 2 {
		t.Fatalf("SubjectMaterials() = %+v, %v", mats, err)
	}
	if got := fake.Requests()[len(fake.Requests())-1].Query; got != "subject_id=10" {
		t.Errorf("SubjectMaterials query = %q", got)
	}
	a, err := client.Assignment(ctx, 200)
	if err != nil || a.Title != "Rancang ERD Perpustakaan" {
		t.Fatalf("Assignment() = %+v, %v", a, err)
	}
	anns, err := client.Announcements(ctx, 3)
	if err != nil || len(anns) != 3 {
		t.Fatalf("Announcements(3) = %d items, %v", len(anns), err)
	}
	all, err := client.Announcements(ctx, 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("Announcements(0) = %d items, %v", len(all), err)
	}
	if _, err := client.Classroom(ctx, 2); !errors.Is(err, api.ErrValidation) {
		t.Errorf("Classroom(2) for non-member error = %v, want ErrValidation", err)
	}
}

func TestClient_TodaySchedules(t *testing.T) {
	// Given a server whose today is a Monday
	monday := time.Date(2024, 9, 2, 7, 0, 0, 0, time.UTC)
	fake := fakeapi.New(fakeapi.WithClock(func() time.Time { return monday }))
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := api.New(srv.URL+"/api", &memCreds{token: fakeapi.DemoToken})

	// When today's schedules are requested
	got, err := client.Schedules(context.Background(), true)

	// Then only Senin slots come back
	if err != nil {
		t.Fatalf("Schedules() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Schedules(today) = %d, want 2", len(got))
	}
	for _, s := range got {
		if s.Day != "Senin" {
			t.Errorf("Day = %q, want Senin", s.Day)
		}
	}
	if q := fake.Requests()[0].Query; q != "today=true" {
		t.Errorf("query = %q, want today=true", q)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("boom"), want: "boom"},
		{name: "auth", err: &api.Error{Kind: api.KindAuth, Message: "Unauthenticated."}, want: "please log in again"},
		{name: "validation", err: &api.Error{Kind: api.KindValidation, Message: "Kode kelas tidak ditemukan."}, want: "Kode kelas tidak ditemukan."},
		{name: "validation without message", err: &api.Error{Kind: api.KindValidation}, want: "the request was rejected"},
		{name: "server", err: &api.Error{Kind: api.KindServer}, want: "the server had a problem, try again later"},
		{name: "network", err: &api.Error{Kind: api.KindNetwork, Err: errors.New("dial")}, want: "cannot reach the server, check your connection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := api.Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}
