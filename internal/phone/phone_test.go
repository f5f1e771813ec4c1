package phone

import "testing"

func TestNormalize(t *testing.T) {
	n, err := Normalize("+998901234567")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if n.Raw != "+998901234567" {
		t.Fatalf("unexpected raw %q", n.Raw)
	}
	if n.Digits != "998901234567" {
		t.Fatalf("unexpected digits %q", n.Digits)
	}
	if n.Last9 != "901234567" {
		t.Fatalf("unexpected last9 %q", n.Last9)
	}
}

func TestNormalizeTrimsWhitespace(t *testing.T) {
	n, err := Normalize("  +998901234567 ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if n.Last9 != "901234567" {
		t.Fatalf("unexpected last9 %q", n.Last9)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	for _, raw := range []string{
		"",
		"901234567",
		"998901234567",
		"+99890123456",    // too short
		"+9989012345678",  // too long
		"+79001234567",    // wrong country
		"+99890123456a",
	} {
		if _, err := Normalize(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
