package locale

import "testing"

func TestNumberGrouping(t *testing.T) {
	f := New("uk")
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{500000, "500 000"},
		{1250000, "1 250 000"},
	}
	for _, tt := range tests {
		if got := f.Number(tt.in); got != tt.want {
			t.Errorf("Number(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAffixed(t *testing.T) {
	f := Default()
	if got := f.Affixed(120000, "$", ""); got != "$120 000" {
		t.Fatalf("got %q", got)
	}
	if got := f.Affixed(80, "", "m²"); got != "80 m²" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownTagFallsBack(t *testing.T) {
	if got := New("not a tag!").Tag(); got != "uk" {
		t.Fatalf("expected uk fallback, got %q", got)
	}
}
