package lang

import "testing"

func TestIsValid(t *testing.T) {
	for _, l := range All() {
		if !l.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", l)
		}
	}

	invalid := []Language{"", "de", "FR", "english"}
	for _, l := range invalid {
		if l.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", l)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"fr", French, true},
		{" EN ", English, true},
		{"Ar", Arabic, true},
		{"es", "es", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOr(t *testing.T) {
	if got := Language("de").Or(Default); got != French {
		t.Errorf("expected fallback to %q, got %q", French, got)
	}
	if got := English.Or(Default); got != English {
		t.Errorf("expected %q, got %q", English, got)
	}
}
