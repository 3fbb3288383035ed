package types_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tmnsur/jsip-sub002/internal/types"
)

func TestNameValue_String(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		nv   types.NameValue
		want string
	}{
		{"flag", types.Flag("lr"), "lr"},
		{"name only", types.NameValue{Name: "expires"}, "expires"},
		{"token", types.Pair("transport", "tcp"), "transport=tcp"},
		{"quoted", types.QuotedPair("tag", `a "b"`), `tag="a \"b\""`},
		{"empty quoted", types.QuotedPair("realm", ""), `realm=""`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if got := c.nv.String(); got != c.want {
				t.Errorf("nv.String() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestNameValue_Equal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a    types.NameValue
		b    any
		want bool
	}{
		{"same token case-insensitive", types.Pair("Transport", "TCP"), types.Pair("transport", "tcp"), true},
		{"quoted case-sensitive", types.QuotedPair("a", "X"), types.QuotedPair("a", "x"), false},
		{"quoted vs token", types.QuotedPair("a", "x"), types.Pair("a", "x"), false},
		{"flag equals name only", types.Flag("lr"), types.NameValue{Name: "lr"}, true},
		{"flag vs value", types.Flag("lr"), types.Pair("lr", "1"), false},
		{"pointer", types.Pair("a", "1"), &types.NameValue{Name: "A", Value: "1"}, true},
		{"nil pointer", types.Pair("a", "1"), (*types.NameValue)(nil), false},
		{"other type", types.Pair("a", "1"), "a=1", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if got := c.a.Equal(c.b); got != c.want {
				t.Errorf("a.Equal(b) = %v, want %v", got, c.want)
			}
		})
	}
}

func TestNameValue_Match(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		nv   types.NameValue
		tmpl any
		want bool
	}{
		{"flag template matches any value", types.Pair("branch", "z9hG4bK1"), types.Flag("branch"), true},
		{"empty name template", types.Pair("branch", "z9hG4bK1"), types.NameValue{}, true},
		{"value mismatch", types.Pair("branch", "z9hG4bK1"), types.Pair("branch", "z9hG4bK2"), false},
		{"quoted vs token same text", types.QuotedPair("tag", "abc"), types.Pair("tag", "abc"), true},
		{"missing value", types.Flag("lr"), types.Pair("lr", "on"), false},
		{"nil template", types.Flag("lr"), (*types.NameValue)(nil), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if got := c.nv.Match(c.tmpl); got != c.want {
				t.Errorf("nv.Match(tmpl) = %v, want %v", got, c.want)
			}
		})
	}
}

func TestParams(t *testing.T) {
	t.Parallel()

	var ps types.Params
	ps = ps.SetValue("transport", "udp")
	ps = ps.SetFlag("lr")
	ps = ps.SetValue("Transport", "tcp")

	if got, want := ps.String(), ";Transport=tcp;lr"; got != want {
		t.Errorf("ps.String() = %q, want %q", got, want)
	}
	if v, ok := ps.Value("TRANSPORT"); !ok || v != "tcp" {
		t.Errorf("ps.Value(\"TRANSPORT\") = %q, %v, want \"tcp\", true", v, ok)
	}

	clone := ps.Clone()
	clone = clone.SetValue("transport", "tls")
	if v, _ := ps.Value("transport"); v != "tcp" {
		t.Errorf("source mutated through clone: transport = %q", v)
	}

	ps = ps.Del("lr")
	if ps.Has("lr") {
		t.Error("ps.Has(\"lr\") = true after Del")
	}

	if !(types.Params{types.Pair("a", "1"), types.Flag("b")}).Equal(types.Params{types.Flag("B"), types.Pair("A", "1")}) {
		t.Error("Params.Equal should ignore order")
	}
	if (types.Params{types.Pair("a", "1")}).Equal(types.Params{types.Pair("a", "1"), types.Flag("b")}) {
		t.Error("Params.Equal should compare length")
	}
}

func TestParams_MatchMerge(t *testing.T) {
	t.Parallel()

	ps := types.Params{types.Pair("branch", "z9hG4bK1"), types.Pair("received", "10.0.0.1")}

	if !ps.Match(types.Params{types.Flag("branch")}) {
		t.Error("ps.Match(branch) = false, want true")
	}
	if ps.Match(types.Params{types.Pair("rport", "5060")}) {
		t.Error("ps.Match(rport=5060) = true, want false")
	}
	if !ps.Match(nil) {
		t.Error("ps.Match(nil) = false, want true")
	}

	got := ps.Clone().Merge(types.Params{types.Pair("branch", "other"), types.Flag("rport")})
	want := types.Params{types.Pair("branch", "z9hG4bK1"), types.Pair("received", "10.0.0.1"), types.Flag("rport")}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("ps.Merge(...) = %v, want %v\ndiff (-got +want):\n%v", got, want, diff)
	}
}

func TestMultiParams(t *testing.T) {
	t.Parallel()

	var ps types.MultiParams
	ps = ps.Add(types.Pair("a", "1"))
	ps = ps.Add(types.Pair("b", "x"))
	ps = ps.Add(types.Pair("A", "2"))

	got := ps.Get("a")
	want := []types.NameValue{types.Pair("a", "1"), types.Pair("A", "2")}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("ps.Get(\"a\") = %v, want %v\ndiff (-got +want):\n%v", got, want, diff)
	}

	sb := new(strings.Builder)
	if _, err := ps.RenderTo(sb, "?", "&"); err != nil {
		t.Fatalf("ps.RenderTo() error = %v, want nil", err)
	}
	if got, want := sb.String(), "?a=1&b=x&A=2"; got != want {
		t.Errorf("ps.RenderTo() = %q, want %q", got, want)
	}

	reordered := types.MultiParams{types.Pair("b", "x"), types.Pair("a", "1"), types.Pair("a", "2")}
	if !ps.Equal(reordered) {
		t.Error("ps.Equal(reordered) = false, want true")
	}
	swapped := types.MultiParams{types.Pair("a", "2"), types.Pair("b", "x"), types.Pair("a", "1")}
	if ps.Equal(swapped) {
		t.Error("ps.Equal(swapped values) = true, want false")
	}

	if !ps.Match(types.MultiParams{types.Pair("a", "2"), types.Pair("a", "1")}) {
		t.Error("ps.Match(a=2&a=1) = false, want true")
	}
	if ps.Match(types.MultiParams{types.Pair("a", "1"), types.Pair("a", "1")}) {
		t.Error("ps.Match(a=1&a=1) = true, want false")
	}

	merged := types.MultiParams{types.Pair("a", "9")}.Merge(ps)
	wantMerged := types.MultiParams{types.Pair("a", "9"), types.Pair("b", "x")}
	if diff := cmp.Diff(merged, wantMerged); diff != "" {
		t.Errorf("Merge() = %v, want %v\ndiff (-got +want):\n%v", merged, wantMerged, diff)
	}
}
