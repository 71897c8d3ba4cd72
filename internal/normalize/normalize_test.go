package normalize

import (
	"net/url"
	"testing"
)

func TestNormalize_String(t *testing.T) {
	got, err := Normalize("  alice  ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "alice" {
		t.Fatalf("got %q, want %q", got, "alice")
	}
}

func TestNormalize_Int(t *testing.T) {
	got, err := Normalize(42)
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Fatalf("got %q, want %q", got, "42")
	}
}

func TestNormalize_Uint64(t *testing.T) {
	got, err := Normalize(uint64(18446744073709551615))
	if err != nil {
		t.Fatal(err)
	}
	if got != "18446744073709551615" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_Float(t *testing.T) {
	got, err := Normalize(3.14)
	if err != nil {
		t.Fatal(err)
	}
	if got != "3.14" {
		t.Fatalf("got %q, want %q", got, "3.14")
	}
}

func TestNormalize_FloatRejectsNaN(t *testing.T) {
	_, err := Normalize(zero() / zero())
	if err == nil {
		t.Fatal("expected NaN to be rejected")
	}
}

func TestNormalize_FloatRejectsInf(t *testing.T) {
	_, err := Normalize(1.0 / zero())
	if err == nil {
		t.Fatal("expected +Inf to be rejected")
	}
}

func zero() float64 { return 0 }

func TestNormalize_URLCanonicalizesSchemeAndHost(t *testing.T) {
	u, err := url.Parse("HTTPS://Example.COM/path")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Normalize(*u)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://example.com/path" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_URLPointer(t *testing.T) {
	u, err := url.Parse("https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Normalize(u)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://example.com/a" {
		t.Fatalf("got %q", got)
	}
}

type shortToken string

func (s shortToken) String() string { return string(s) }

func TestNormalize_StringerShortToken(t *testing.T) {
	got, err := Normalize(shortToken("ACTIVE"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "ACTIVE" {
		t.Fatalf("got %q", got)
	}
}

type longToken string

func (s longToken) String() string { return string(s) }

func TestNormalize_StringerRejectsWhitespace(t *testing.T) {
	_, err := Normalize(longToken("not a token"))
	if err == nil {
		t.Fatal("expected whitespace-containing Stringer to be rejected")
	}
}

func TestNormalize_UnsupportedKind(t *testing.T) {
	_, err := Normalize(struct{}{})
	if err == nil {
		t.Fatal("expected unsupported kind to be rejected")
	}
}
