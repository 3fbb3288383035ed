package types

import (
	"io"
	"slices"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Params is an ordered parameter list with case-insensitive names
// and at most one value per name: setting an existing name replaces its value in place.
// Mutating methods return the updated list, use them like the append builtin.
type Params []NameValue

func (ps Params) index(name string) int {
	return slices.IndexFunc(ps, func(nv NameValue) bool { return util.EqFold(nv.Name, name) })
}

// Get returns the parameter with the given name.
func (ps Params) Get(name string) (NameValue, bool) {
	if i := ps.index(name); i >= 0 {
		return ps[i], true
	}
	return NameValue{}, false
}

// Value returns the value of the parameter with the given name.
// The second result reports whether the parameter is present.
func (ps Params) Value(name string) (string, bool) {
	nv, ok := ps.Get(name)
	return nv.Value, ok
}

// Has checks whether a parameter with the given name is in the list.
func (ps Params) Has(name string) bool { return ps.index(name) >= 0 }

// Set adds the parameter or replaces the value of an existing parameter with the same name.
func (ps Params) Set(nv NameValue) Params {
	if i := ps.index(nv.Name); i >= 0 {
		ps[i] = nv
		return ps
	}
	return append(ps, nv)
}

// SetValue is a shortcut for Set with a token value.
func (ps Params) SetValue(name, value string) Params { return ps.Set(Pair(name, value)) }

// SetFlag is a shortcut for Set with a flag parameter.
func (ps Params) SetFlag(name string) Params { return ps.Set(Flag(name)) }

// Del removes the parameter with the given name.
func (ps Params) Del(name string) Params {
	return slices.DeleteFunc(ps, func(nv NameValue) bool { return util.EqFold(nv.Name, name) })
}

// Clone returns a copy of the list.
func (ps Params) Clone() Params { return slices.Clone(ps) }

// RenderTo writes every parameter prefixed with sep, e.g. ";a=1;b".
func (ps Params) RenderTo(w io.Writer, sep string) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	for _, nv := range ps {
		cw.WriteString(sep)
		cw.Call(nv.RenderTo)
	}
	return errtrace.Wrap2(cw.Result())
}

func (ps Params) String() string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	ps.RenderTo(sb, ";") //nolint:errcheck
	return sb.String()
}

// Equal compares lists ignoring order of parameters.
func (ps Params) Equal(val any) bool {
	var other Params
	switch v := val.(type) {
	case Params:
		other = v
	case *Params:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}

	if len(ps) != len(other) {
		return false
	}
	for _, nv := range ps {
		onv, ok := other.Get(nv.Name)
		if !ok || !nv.Equal(onv) {
			return false
		}
	}
	return true
}

// Match reports whether every template parameter is present in the list and matches it.
func (ps Params) Match(tmpl any) bool {
	var t Params
	switch v := tmpl.(type) {
	case Params:
		t = v
	case *Params:
		if v == nil {
			return true
		}
		t = *v
	default:
		return false
	}

	for _, tnv := range t {
		nv, ok := ps.Get(tnv.Name)
		if !ok || !nv.Match(tnv) {
			return false
		}
	}
	return true
}

// Merge appends parameters from other that are missing in the list.
// Existing parameters keep their values.
func (ps Params) Merge(other Params) Params {
	for _, nv := range other {
		if !ps.Has(nv.Name) {
			ps = append(ps, nv)
		}
	}
	return ps
}

// IsValid checks whether all parameters are valid.
func (ps Params) IsValid() bool {
	return !slices.ContainsFunc(ps, func(nv NameValue) bool { return !nv.IsValid() })
}

// MultiParams is an ordered parameter list with case-insensitive names that keeps
// every value of a repeated name.
// It is used where the grammar permits repetition, e.g. URI headers.
type MultiParams []NameValue

// Get returns all parameters with the given name in order of appearance.
func (ps MultiParams) Get(name string) []NameValue {
	var out []NameValue
	for _, nv := range ps {
		if util.EqFold(nv.Name, name) {
			out = append(out, nv)
		}
	}
	return out
}

// First returns the first parameter with the given name.
func (ps MultiParams) First(name string) (NameValue, bool) {
	for _, nv := range ps {
		if util.EqFold(nv.Name, name) {
			return nv, true
		}
	}
	return NameValue{}, false
}

// Value returns the value of the first parameter with the given name.
func (ps MultiParams) Value(name string) (string, bool) {
	nv, ok := ps.First(name)
	return nv.Value, ok
}

func (ps MultiParams) Has(name string) bool {
	_, ok := ps.First(name)
	return ok
}

// Add appends the parameter, keeping already present values of the same name.
func (ps MultiParams) Add(nv NameValue) MultiParams { return append(ps, nv) }

// Del removes all parameters with the given name.
func (ps MultiParams) Del(name string) MultiParams {
	return slices.DeleteFunc(ps, func(nv NameValue) bool { return util.EqFold(nv.Name, name) })
}

func (ps MultiParams) Clone() MultiParams { return slices.Clone(ps) }

// RenderTo writes the parameters, the first one is prefixed with lead, others with sep,
// e.g. "?a=1&a=2" or "a=1, b=2".
func (ps MultiParams) RenderTo(w io.Writer, lead, sep string) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	for i, nv := range ps {
		if i == 0 {
			cw.WriteString(lead)
		} else {
			cw.WriteString(sep)
		}
		cw.Call(nv.RenderTo)
	}
	return errtrace.Wrap2(cw.Result())
}

// Equal compares lists: names are grouped ignoring order, values of the same name must go in the same order.
func (ps MultiParams) Equal(val any) bool {
	var other MultiParams
	switch v := val.(type) {
	case MultiParams:
		other = v
	case *MultiParams:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}

	if len(ps) != len(other) {
		return false
	}
	for _, nv := range ps {
		if !slices.EqualFunc(ps.Get(nv.Name), other.Get(nv.Name), func(a, b NameValue) bool { return a.Equal(b) }) {
			return false
		}
	}
	return true
}

// Match reports whether every template entry matches a distinct entry of the list with the same name.
func (ps MultiParams) Match(tmpl any) bool {
	var t MultiParams
	switch v := tmpl.(type) {
	case MultiParams:
		t = v
	case *MultiParams:
		if v == nil {
			return true
		}
		t = *v
	default:
		return false
	}

	used := make([]bool, len(ps))
	for _, tnv := range t {
		found := false
		for i, nv := range ps {
			if !used[i] && nv.Match(tnv) {
				used[i], found = true, true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Merge appends all values of names missing in the list.
func (ps MultiParams) Merge(other MultiParams) MultiParams {
	present := make(map[string]bool, len(ps))
	for _, nv := range ps {
		present[util.LCase(nv.Name)] = true
	}
	for _, nv := range other {
		if !present[util.LCase(nv.Name)] {
			ps = append(ps, nv)
		}
	}
	return ps
}

func (ps MultiParams) IsValid() bool {
	return !slices.ContainsFunc(ps, func(nv NameValue) bool { return !nv.IsValid() })
}
