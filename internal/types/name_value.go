package types

import (
	"fmt"
	"io"
	"strconv"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// NameValue is a single "name[=value]" parameter.
//
// A parameter without a value is a flag parameter (Flag is true).
// A parameter whose value failed to parse is kept as name-only, with empty Value and Flag unset;
// both forms render identically and are equal.
type NameValue struct {
	Name  string
	Value string
	// Quoted indicates the value was (or must be) written as a quoted string.
	Quoted bool
	// Flag indicates the parameter was present without a value.
	Flag bool
}

// Flag returns a flag parameter.
func Flag(name string) NameValue { return NameValue{Name: name, Flag: true} }

// Pair returns a parameter with a token value.
func Pair(name, value string) NameValue { return NameValue{Name: name, Value: value} }

// QuotedPair returns a parameter with a quoted string value.
func QuotedPair(name, value string) NameValue {
	return NameValue{Name: name, Value: value, Quoted: true}
}

// HasValue reports whether the parameter carries a value (possibly an empty quoted string).
func (nv NameValue) HasValue() bool { return !nv.Flag && (nv.Value != "" || nv.Quoted) }

// RenderTo writes the parameter as "name", "name=value" or `name="value"`.
func (nv NameValue) RenderTo(w io.Writer) (int, error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)

	cw.WriteString(nv.Name)
	if nv.HasValue() {
		cw.WriteString("=")
		if nv.Quoted {
			cw.WriteString(grammar.Quote(nv.Value))
		} else {
			cw.WriteString(nv.Value)
		}
	}
	return errtrace.Wrap2(cw.Result())
}

func (nv NameValue) String() string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	nv.RenderTo(sb) //nolint:errcheck
	return sb.String()
}

// Format implements fmt.Formatter for custom formatting of the parameter.
func (nv NameValue) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, nv.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(nv.String()))
		return
	default:
		if !f.Flag('+') && !f.Flag('#') {
			fmt.Fprint(f, nv.String())
			return
		}

		type hideMethods NameValue
		type NameValue hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), NameValue(nv))
		return
	}
}

// Equal compares parameters.
// Names and token values are compared case-insensitively, quoted values are compared case-sensitively.
func (nv NameValue) Equal(val any) bool {
	var other NameValue
	switch v := val.(type) {
	case NameValue:
		other = v
	case *NameValue:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}

	if !util.EqFold(nv.Name, other.Name) || nv.HasValue() != other.HasValue() {
		return false
	}
	if !nv.HasValue() {
		return true
	}
	if nv.Quoted || other.Quoted {
		return nv.Quoted == other.Quoted && nv.Value == other.Value
	}
	return util.EqFold(nv.Value, other.Value)
}

// Match reports whether the parameter matches the template.
// The template value is a wildcard when it has no value.
func (nv NameValue) Match(tmpl any) bool {
	var t NameValue
	switch v := tmpl.(type) {
	case NameValue:
		t = v
	case *NameValue:
		if v == nil {
			return true
		}
		t = *v
	default:
		return false
	}

	if t.Name != "" && !util.EqFold(nv.Name, t.Name) {
		return false
	}
	if !t.HasValue() {
		return true
	}
	if !nv.HasValue() {
		return false
	}
	if nv.Quoted || t.Quoted {
		return nv.Value == t.Value
	}
	return util.EqFold(nv.Value, t.Value)
}

// IsValid checks whether the parameter is syntactically valid.
func (nv NameValue) IsValid() bool {
	if !grammar.IsToken(nv.Name) {
		return false
	}
	if !nv.HasValue() || nv.Quoted {
		return true
	}
	return grammar.IsToken(nv.Value) || grammar.IsHost(nv.Value)
}
