package lang

import "testing"

func TestGetString(t *testing.T) {
	if got := GetString("en", "call_8"); got == "call_8" || got == "" {
		t.Errorf("Expected a real message for call_8, got %q", got)
	}
}

func TestGetStringFallsBackToEnglish(t *testing.T) {
	want := GetString("en", "call_10")
	if got := GetString("xx", "call_10"); got != want {
		t.Errorf("Expected English fallback %q, got %q", want, got)
	}
}

func TestGetStringUnknownKey(t *testing.T) {
	if got := GetString("en", "no_such_key"); got != "no_such_key" {
		t.Errorf("Expected the key itself for unknown keys, got %q", got)
	}
}
