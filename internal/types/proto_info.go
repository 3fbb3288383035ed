package types

import (
	"fmt"
	"strconv"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// ProtoInfo is a protocol name and version pair, e.g. SIP/2.0.
type ProtoInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Proto20 is the SIP/2.0 protocol.
var Proto20 = ProtoInfo{Name: "SIP", Version: "2.0"}

func (p ProtoInfo) String() string { return p.Name + "/" + p.Version }

func (p ProtoInfo) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, p.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(p.String()))
		return
	default:
		if !f.Flag('+') && !f.Flag('#') {
			fmt.Fprint(f, p.String())
			return
		}

		type hideMethods ProtoInfo
		type ProtoInfo hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), ProtoInfo(p))
		return
	}
}

func (p ProtoInfo) Equal(val any) bool {
	var other ProtoInfo
	switch v := val.(type) {
	case ProtoInfo:
		other = v
	case *ProtoInfo:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return util.EqFold(p.Name, other.Name) && util.EqFold(p.Version, other.Version)
}

// Match reports whether the protocol matches the template, empty template fields match anything.
func (p ProtoInfo) Match(tmpl ProtoInfo) bool {
	return (tmpl.Name == "" || util.EqFold(p.Name, tmpl.Name)) &&
		(tmpl.Version == "" || util.EqFold(p.Version, tmpl.Version))
}

// Merge returns the protocol with empty fields taken from other.
func (p ProtoInfo) Merge(other ProtoInfo) ProtoInfo {
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.Version == "" {
		p.Version = other.Version
	}
	return p
}

func (p ProtoInfo) IsValid() bool { return grammar.IsToken(p.Name) && grammar.IsToken(p.Version) }

func (p ProtoInfo) IsZero() bool { return p.Name == "" && p.Version == "" }
