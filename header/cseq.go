package header

import (
	"fmt"
	"io"
	"strconv"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/syntax"
)

// CSeq represents the CSeq header field.
// The CSeq header field serves as a way to identify and order transactions.
type CSeq struct {
	SeqNum uint
	Method RequestMethod
}

func (*CSeq) CanonicName() Name { return "CSeq" }

func (*CSeq) CompactName() Name { return "CSeq" }

func (hdr *CSeq) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, hdr.renderValueTo))
}

func (hdr *CSeq) renderValueTo(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(strconv.FormatUint(uint64(hdr.SeqNum), 10))
	cw.WriteString(" ")
	cw.WriteString(string(hdr.Method))
	return errtrace.Wrap2(cw.Result())
}

func (hdr *CSeq) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *CSeq) String() string { return hdr.RenderValue() }

func (hdr *CSeq) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return renderToString(hdr.renderValueTo)
}

func (hdr *CSeq) Format(f fmt.State, verb rune) {
	type hideMethods CSeq
	type CSeq hideMethods
	formatHdr(f, verb, hdr, (*CSeq)(hdr))
}

func (hdr *CSeq) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

// Equal compares sequence numbers and methods.
func (hdr *CSeq) Equal(val any) bool {
	var other *CSeq
	switch v := val.(type) {
	case CSeq:
		other = &v
	case *CSeq:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return hdr.SeqNum == other.SeqNum && hdr.Method.Equal(other.Method)
}

// Match treats the zero sequence number and the empty method of the template as wildcards.
func (hdr *CSeq) Match(tmpl any) bool {
	var t *CSeq
	switch v := tmpl.(type) {
	case nil:
		return true
	case CSeq:
		t = &v
	case *CSeq:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return (t.SeqNum == 0 || hdr.SeqNum == t.SeqNum) && (t.Method == "" || hdr.Method.Equal(t.Method))
}

func (hdr *CSeq) MergeFrom(other any) {
	o, ok := other.(*CSeq)
	if hdr == nil || !ok || o == nil {
		return
	}
	if hdr.SeqNum == 0 {
		hdr.SeqNum = o.SeqNum
	}
	if hdr.Method == "" {
		hdr.Method = o.Method
	}
}

// IsValid checks the method token and the sequence number limit of 2**31.
func (hdr *CSeq) IsValid() bool {
	return hdr != nil && hdr.SeqNum < 1<<31 && grammar.IsToken(hdr.Method)
}

func parseCSeq(_ Name, value string) (Header, error) {
	l := newLexer(value)
	num, err := syntax.ParseUint(l, 32)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if l.SkipLWS() == 0 {
		return nil, errtrace.Wrap(l.Errorf("expected whitespace after sequence number"))
	}
	l.SelectMode(syntax.ModeMethod)
	method, err := l.Ident()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &CSeq{SeqNum: uint(num), Method: RequestMethod(method)}, nil
}
