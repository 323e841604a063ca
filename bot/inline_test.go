package bot

import "testing"

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/shorts/abc_-123", "abc_-123", true},
		{"https://youtube.com/live/xyz789", "xyz789", true},
		{"never gonna give you up", "", false},
		{"https://example.com/watch?v=nope", "", false},
	}
	for _, tc := range cases {
		got, ok := extractVideoID(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("extractVideoID(%q) = %q/%v, want %q/%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
