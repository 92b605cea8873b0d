package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/gommon/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    log.Lvl
		wantErr bool
	}{
		{"debug", log.DEBUG, false},
		{" INFO ", log.INFO, false},
		{"", log.WARN, false},
		{"warning", log.WARN, false},
		{"error", log.ERROR, false},
		{"off", log.OFF, false},
		{"verbose", log.OFF, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNew_FiltersByLevelAndTagsComponent(t *testing.T) {
	// Given: a warn-level logger for the query component
	var buf bytes.Buffer
	l := New("query", &buf, log.WARN)

	// When: it logs below and at its level
	l.Debugf("fetching %s", "schedules")
	l.Warnf("retrying %s", "schedules")

	// Then: only the warning is written, tagged with the component
	out := buf.String()
	if strings.Contains(out, "fetching") {
		t.Errorf("debug line written at warn level: %q", out)
	}
	if !strings.Contains(out, "retrying schedules") || !strings.Contains(out, "query") {
		t.Errorf("output = %q, want the warning tagged with query", out)
	}
}

func TestOpen(t *testing.T) {
	t.Run("empty path discards", func(t *testing.T) {
		w, err := Open("")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte("x")); err != nil {
			t.Errorf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	t.Run("creates parent directories and appends", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "kelas.log")
		for _, line := range []string{"one\n", "two\n"} {
			w, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := w.Write([]byte(line)); err != nil {
				t.Fatal(err)
			}
			w.Close()
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "one\ntwo\n" {
			t.Errorf("log file = %q", data)
		}
	})
}
