package uri_test

import (
	"testing"

	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/uri"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		scheme string
		addr   string
	}{
		{"sip:alice@a.com", "sip", "a.com"},
		{"SIPS:alice@a.com:5061", "sips", "a.com:5061"},
		{"tel:+1-201-555-0123", "tel", "+1-201-555-0123"},
		{"urn:service:sos", "urn", ""},
		{"https://example.com/path", "https", "example.com/path"},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			t.Parallel()

			u, err := uri.Parse(c.in)
			if err != nil {
				t.Fatalf("uri.Parse(%q) error = %v, want nil", c.in, err)
			}
			if got := u.Scheme(); got != c.scheme {
				t.Errorf("u.Scheme() = %q, want %q", got, c.scheme)
			}
			if got := uri.GetAddr(u); got != c.addr {
				t.Errorf("uri.GetAddr(u) = %q, want %q", got, c.addr)
			}
			if !types.IsEqual(u, u.Clone()) {
				t.Errorf("types.IsEqual(u, u.Clone()) = false, want true")
			}
		})
	}

	if _, err := uri.Parse("no-scheme"); err == nil {
		t.Error("uri.Parse(\"no-scheme\") error = nil, want error")
	}
}

func TestTel(t *testing.T) {
	t.Parallel()

	u, err := uri.ParseTel("tel:+1-201-555-0123;ext=42")
	if err != nil {
		t.Fatalf("uri.ParseTel() error = %v, want nil", err)
	}
	if !u.IsGlob() || !u.IsValid() {
		t.Errorf("u.IsGlob() = %v, u.IsValid() = %v, want true, true", u.IsGlob(), u.IsValid())
	}
	if ext, _ := u.Extension(); ext != "42" {
		t.Errorf("u.Extension() = %q, want \"42\"", ext)
	}
	if got, want := u.String(), "tel:+1-201-555-0123;ext=42"; got != want {
		t.Errorf("u.String() = %q, want %q", got, want)
	}

	other := &uri.Tel{Number: "+12015550123", Params: uri.Params{types.Pair("EXT", "42")}}
	if !u.Equal(other) {
		t.Errorf("%q.Equal(%q) = false, want true", u, other)
	}
	if !u.Match(&uri.Tel{Number: "+1 (201) 555-0123"}) {
		t.Error("u.Match(number) = false, want true")
	}

	local, err := uri.ParseTel("tel:7042;phone-context=example.com")
	if err != nil {
		t.Fatalf("uri.ParseTel() error = %v, want nil", err)
	}
	if local.IsGlob() || !local.IsValid() {
		t.Errorf("local.IsGlob() = %v, local.IsValid() = %v, want false, true", local.IsGlob(), local.IsValid())
	}
	if (&uri.Tel{Number: "7042"}).IsValid() {
		t.Error("local number without phone-context must be invalid")
	}

	if _, err := uri.ParseTel("tel:ghi;x"); err == nil {
		t.Error("uri.ParseTel(\"tel:ghi;x\") error = nil, want error")
	}
}

func TestAny(t *testing.T) {
	t.Parallel()

	u, err := uri.ParseAny("HTTPS://Example.com/a?b=1")
	if err != nil {
		t.Fatalf("uri.ParseAny() error = %v, want nil", err)
	}
	u2, _ := uri.ParseAny("https://example.com/a?b=1")
	if !u.Equal(u2) {
		t.Errorf("%q.Equal(%q) = false, want true", u, u2)
	}

	var zero uri.Any
	if !u.Match(&zero) {
		t.Error("u.Match(zero) = false, want true")
	}
	zero.MergeFrom(u)
	if !zero.Equal(u) {
		t.Errorf("MergeFrom() = %q, want %q", &zero, u)
	}
}
