package audio

import "testing"

func TestSecondsToMin(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{185, "3:05"},
		{3600, "60:00"},
		{-5, "0:00"},
	}
	for _, tc := range cases {
		if got := SecondsToMin(tc.seconds); got != tc.want {
			t.Errorf("SecondsToMin(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestSpeedPosition(t *testing.T) {
	text, secs := SpeedPosition(120, 2.0)
	if secs != 60 || text != "1:00" {
		t.Errorf("Expected 60/1:00 at double speed, got %d/%s", secs, text)
	}

	text, secs = SpeedPosition(60, 0.5)
	if secs != 120 || text != "2:00" {
		t.Errorf("Expected 120/2:00 at half speed, got %d/%s", secs, text)
	}

	_, secs = SpeedPosition(90, 0)
	if secs != 90 {
		t.Errorf("Expected zero speed treated as 1.0, got %d", secs)
	}
}

func TestFormatSpeed(t *testing.T) {
	cases := []struct {
		speed float64
		want  string
	}{
		{1.0, "1.0"},
		{0.5, "0.5"},
		{0.75, "0.75"},
		{1.5, "1.5"},
		{2.0, "2.0"},
	}
	for _, tc := range cases {
		if got := FormatSpeed(tc.speed); got != tc.want {
			t.Errorf("FormatSpeed(%v) = %q, want %q", tc.speed, got, tc.want)
		}
	}
}

func TestPtsFactor(t *testing.T) {
	cases := []struct {
		speed float64
		want  float64
	}{
		{0.5, 2.0},
		{0.75, 1.35},
		{1.5, 0.68},
		{2.0, 0.5},
		{1.25, 1.0},
	}
	for _, tc := range cases {
		if got := ptsFactor(tc.speed); got != tc.want {
			t.Errorf("ptsFactor(%v) = %v, want %v", tc.speed, got, tc.want)
		}
	}
}
