package uri_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/uri"
)

func TestSIP_Render(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		uri  *uri.SIP
		want string
	}{
		{"nil", (*uri.SIP)(nil), ""},
		{"host and port", &uri.SIP{Addr: uri.HostPort("example.com", 5060)}, "sip:example.com:5060"},
		{"secured", &uri.SIP{Secured: true, Addr: uri.Host("example.com")}, "sips:example.com"},
		{
			"user with empty password",
			&uri.SIP{Addr: uri.Host("example.com"), User: uri.UserPassword("root", "")},
			"sip:root:@example.com",
		},
		{
			"escaped user and password",
			&uri.SIP{Addr: uri.Host("example.com"), User: uri.UserPassword("root@;field=123", "p@sswd;qwe")},
			"sip:root%40;field=123:p%40sswd%3Bqwe@example.com",
		},
		{
			"params and headers",
			&uri.SIP{
				Addr:    uri.Host("example.com"),
				Params:  uri.Params{types.Pair("transport", "UDP"), types.Flag("lr")},
				Headers: uri.Headers{types.Pair("Subject", "Hello world!"), types.Pair("priority", "urgent")},
			},
			"sip:example.com;transport=UDP;lr?Subject=Hello%20world!&priority=urgent",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if got := c.uri.Render(nil); got != c.want {
				t.Errorf("u.Render(nil) = %q, want %q", got, c.want)
			}
		})
	}
}

func TestParseSIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		want    *uri.SIP
		wantErr bool
	}{
		{"host only", "sip:example.com", &uri.SIP{Addr: uri.Host("example.com")}, false},
		{
			"full",
			"SIPS:alice:secret@[2001:db8::1]:5061;transport=tls;lr?subject=call%20me&x=1&x=2",
			&uri.SIP{
				Secured: true,
				User:    uri.UserPassword("alice", "secret"),
				Addr:    uri.HostPort("2001:db8::1", 5061),
				Params:  uri.Params{types.Pair("transport", "tls"), types.Flag("lr")},
				Headers: uri.Headers{types.Pair("subject", "call me"), types.Pair("x", "1"), types.Pair("x", "2")},
			},
			false,
		},
		{
			"user with params",
			"sip:+1-555;phone-context=+1@gw.com;user=phone",
			&uri.SIP{
				User:   uri.User("+1-555;phone-context=+1"),
				Addr:   uri.Host("gw.com"),
				Params: uri.Params{types.Pair("user", "phone")},
			},
			false,
		},
		{"empty password", "sip:bob:@b.com", &uri.SIP{User: uri.UserPassword("bob", ""), Addr: uri.Host("b.com")}, false},
		{"bad scheme", "http://example.com", nil, true},
		{"no host", "sip:alice@", nil, true},
		{"bad escape", "sip:al%zzice@a.com", nil, true},
		{"trailing garbage", "sip:a.com>", nil, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			got, err := uri.ParseSIP(c.in)
			if (err != nil) != c.wantErr {
				t.Fatalf("uri.ParseSIP(%q) error = %v, want error %v", c.in, err, c.wantErr)
			}
			if err != nil {
				if !errorutil.IsGrammarErr(err) {
					t.Errorf("errorutil.IsGrammarErr(%v) = false, want true", err)
				}
				return
			}
			if !got.Equal(c.want) {
				t.Errorf("uri.ParseSIP(%q) = %+v, want %+v", c.in, got, c.want)
			}
		})
	}
}

func TestSIP_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"sip:alice@atlanta.com",
		"sips:bob:pw@biloxi.com:5061;transport=tcp;maddr=239.255.255.1;ttl=15",
		"sip:carol%20c@[::1];lr?Subject=hi%20there&Priority=urgent",
		"sip:%2B1%23@gw.example.com;user=phone",
	} {
		u, err := uri.ParseSIP(in)
		if err != nil {
			t.Fatalf("uri.ParseSIP(%q) error = %v, want nil", in, err)
		}
		u2, err := uri.ParseSIP(u.String())
		if err != nil {
			t.Fatalf("uri.ParseSIP(%q) error = %v, want nil", u.String(), err)
		}
		if !u2.Equal(u) {
			t.Errorf("round trip of %q: got %q", in, u2)
		}
		if diff := cmp.Diff(u2.Clone(), u.Clone()); diff != "" {
			t.Errorf("round trip of %q mismatch\ndiff (-got +want):\n%v", in, diff)
		}
	}
}

func TestSIP_Equal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"sip:%61lice@atlanta.com;transport=TCP", "sip:alice@AtLanTa.CoM;Transport=tcp", true},
		{"sip:carol@chicago.com", "sip:carol@chicago.com;newparam=5", true},
		{"sip:carol@chicago.com;security=on", "sip:carol@chicago.com;newparam=5", true},
		{"sip:ALICE@AtLanTa.CoM", "sip:alice@atlanta.com", false},
		{"sip:bob@biloxi.com", "sip:bob@biloxi.com:5060", false},
		{"sip:bob@biloxi.com", "sip:bob@biloxi.com;transport=udp", false},
		{"sip:carol@chicago.com?Subject=next%20meeting", "sip:carol@chicago.com", false},
		{"sip:a@b.com", "sips:a@b.com", false},
	}

	for _, c := range cases {
		a, err := uri.ParseSIP(c.a)
		if err != nil {
			t.Fatalf("uri.ParseSIP(%q) error = %v", c.a, err)
		}
		b, err := uri.ParseSIP(c.b)
		if err != nil {
			t.Fatalf("uri.ParseSIP(%q) error = %v", c.b, err)
		}
		if got := a.Equal(b); got != c.want {
			t.Errorf("%q.Equal(%q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSIP_MatchMerge(t *testing.T) {
	t.Parallel()

	u, err := uri.ParseSIP("sip:alice@atlanta.com:5060;transport=tcp")
	if err != nil {
		t.Fatal(err)
	}

	if !u.Match(&uri.SIP{Addr: uri.Host("ATLANTA.com")}) {
		t.Error("u.Match(host) = false, want true")
	}
	if !u.Match(&uri.SIP{User: uri.User("alice"), Params: uri.Params{types.Flag("transport")}}) {
		t.Error("u.Match(user, transport) = false, want true")
	}
	if u.Match(&uri.SIP{User: uri.User("bob")}) {
		t.Error("u.Match(bob) = true, want false")
	}
	if u.Match(&uri.SIP{Secured: true}) {
		t.Error("u.Match(sips) = true, want false")
	}
	if u.Match(&uri.Tel{}) {
		t.Error("u.Match(tel) = true, want false")
	}

	partial := &uri.SIP{Params: uri.Params{types.Pair("transport", "udp")}}
	partial.MergeFrom(u)
	want := &uri.SIP{
		User:   uri.User("alice"),
		Addr:   uri.HostPort("atlanta.com", 5060),
		Params: uri.Params{types.Pair("transport", "udp")},
	}
	if !partial.Equal(want) {
		t.Errorf("MergeFrom() = %q, want %q", partial, want)
	}

	clone := u.Clone().(*uri.SIP)
	clone.Params = clone.Params.SetValue("transport", "tls")
	if v, _ := u.Params.Value("transport"); v != "tcp" {
		t.Errorf("source mutated through clone: transport = %q", v)
	}
}
