package types

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Addr is a container for host and optional port.
type Addr struct {
	host    string
	ip      net.IP
	port    uint16
	hasPort bool
}

// Host returns an [Addr] containing the provided host and no port.
func Host(host string) Addr {
	host = strings.Trim(host, "[]")
	ip := net.ParseIP(host)
	if v := ip.To4(); v != nil {
		ip = v
	}
	return Addr{host: host, ip: ip}
}

// HostPort returns an [Addr] containing the provided host and port.
func HostPort(host string, port uint16) Addr {
	addr := Host(host)
	addr.port, addr.hasPort = port, true
	return addr
}

// Host returns the hostname portion of the address without IPv6 brackets.
func (addr Addr) Host() string { return addr.host }

// IP returns the parsed IP when the host is an IP literal, otherwise nil.
func (addr Addr) IP() net.IP { return addr.ip }

// Port returns the port, in case it is set, and bool flag indicating whether it is set.
func (addr Addr) Port() (uint16, bool) { return addr.port, addr.hasPort }

// WithPort returns a copy of the address with the port set.
func (addr Addr) WithPort(port uint16) Addr {
	addr.port, addr.hasPort = port, true
	return addr
}

// String formats the address as host[:port], adding brackets for IPv6 literals.
func (addr Addr) String() string {
	host := addr.host
	if addr.ip != nil {
		host = addr.ip.String()
	}
	if !addr.hasPort {
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(int(addr.port)))
}

func (addr Addr) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, addr.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(addr.String()))
		return
	default:
		if !f.Flag('+') && !f.Flag('#') {
			fmt.Fprint(f, addr.String())
			return
		}

		type hideMethods Addr
		type Addr hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), Addr(addr))
		return
	}
}

// Clone returns a deep copy of the address including the underlying IP slice.
func (addr Addr) Clone() Addr {
	addr.ip = slices.Clone(addr.ip)
	return addr
}

func (addr Addr) hostEqual(other Addr) bool {
	switch {
	case addr.ip == nil && other.ip == nil:
		return util.EqFold(addr.host, other.host)
	case addr.ip != nil && other.ip != nil:
		return addr.ip.Equal(other.ip)
	default:
		return false
	}
}

// Equal reports whether the address equals the provided value, accepting Addr and *Addr.
// Hostnames are compared case-insensitively.
func (addr Addr) Equal(val any) bool {
	var other Addr
	switch v := val.(type) {
	case Addr:
		other = v
	case *Addr:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return addr.hostEqual(other) && addr.port == other.port && addr.hasPort == other.hasPort
}

// Match reports whether the address matches the template.
// An empty template host or a missing template port act as wildcards.
func (addr Addr) Match(tmpl any) bool {
	var t Addr
	switch v := tmpl.(type) {
	case Addr:
		t = v
	case *Addr:
		if v == nil {
			return true
		}
		t = *v
	default:
		return false
	}

	if t.host != "" && !addr.hostEqual(t) {
		return false
	}
	return !t.hasPort || (addr.hasPort && addr.port == t.port)
}

// Merge returns the address with an empty host and a missing port taken from other.
func (addr Addr) Merge(other Addr) Addr {
	if addr.host == "" {
		addr.host, addr.ip = other.host, slices.Clone(other.ip)
	}
	if !addr.hasPort && other.hasPort {
		addr.port, addr.hasPort = other.port, true
	}
	return addr
}

// IsValid reports whether the address contains a syntactically valid host component.
func (addr Addr) IsValid() bool { return addr.ip != nil || grammar.IsHost(addr.host) }

// IsZero reports whether the address has zero host, IP and port information.
func (addr Addr) IsZero() bool { return addr.host == "" && addr.ip == nil && !addr.hasPort }

func (addr Addr) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}
