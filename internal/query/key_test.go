package query

import "testing"

func TestKey_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want bool
	}{
		{name: "same resource", a: NewKey("schedules"), b: NewKey("schedules"), want: true},
		{name: "same numeric param", a: NewKey("classroom", 7), b: NewKey("classroom", 7), want: true},
		{name: "int vs float param", a: NewKey("classroom", 7), b: NewKey("classroom", 7.0), want: true},
		{name: "different param", a: NewKey("classroom", 7), b: NewKey("classroom", 8), want: false},
		{name: "record params in any order",
			a:    NewKey("schedules", map[string]any{"today": true, "week": 2}),
			b:    NewKey("schedules", map[string]any{"week": 2, "today": true}),
			want: true},
		{name: "param vs none", a: NewKey("schedules"), b: NewKey("schedules", map[string]any{"today": true}), want: false},
		{name: "string vs number", a: NewKey("material", "4"), b: NewKey("material", 4), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%s.Equal(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestKey_HasPrefix(t *testing.T) {
	today := NewKey("schedules", map[string]any{"today": true})
	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{name: "resource matches parameterized", key: today, prefix: NewKey("schedules"), want: true},
		{name: "key matches itself", key: today, prefix: today, want: true},
		{name: "longer prefix", key: NewKey("schedules"), prefix: today, want: false},
		{name: "other resource", key: NewKey("subject-materials", 1), prefix: NewKey("subject"), want: false},
		{name: "empty prefix matches all", key: today, prefix: Key{}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
				t.Errorf("%s.HasPrefix(%s) = %v, want %v", tt.key, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestKey_Resource(t *testing.T) {
	if got := NewKey("classroom-materials", 3).Resource(); got != "classroom-materials" {
		t.Errorf("Resource() = %q", got)
	}
	if got := (Key{}).Resource(); got != "" {
		t.Errorf("empty Resource() = %q, want empty", got)
	}
}

func TestKey_String(t *testing.T) {
	got := NewKey("announcements", map[string]any{"limit": 3}).String()
	want := `["announcements",{"limit":3}]`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}
