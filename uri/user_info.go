package uri

import (
	"fmt"
	"io"
	"strconv"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// UserInfo is the userinfo part of a SIP URI.
// Values are stored unescaped.
type UserInfo struct {
	Username    string
	Password    string
	HasPassword bool
}

// User returns a [UserInfo] with the username only.
func User(name string) UserInfo { return UserInfo{Username: name} }

// UserPassword returns a [UserInfo] with the username and password.
func UserPassword(name, passwd string) UserInfo {
	return UserInfo{Username: name, Password: passwd, HasPassword: true}
}

// RenderTo writes the escaped userinfo without the trailing "@".
func (ui UserInfo) RenderTo(w io.Writer) (int, error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(grammar.Escape(ui.Username, grammar.IsUserChar))
	if ui.HasPassword {
		cw.WriteString(":")
		cw.WriteString(grammar.Escape(ui.Password, grammar.IsPasswordChar))
	}
	return errtrace.Wrap2(cw.Result())
}

func (ui UserInfo) String() string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	ui.RenderTo(sb) //nolint:errcheck
	return sb.String()
}

func (ui UserInfo) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, ui.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(ui.String()))
		return
	default:
		if !f.Flag('+') && !f.Flag('#') {
			fmt.Fprint(f, ui.String())
			return
		}

		type hideMethods UserInfo
		type UserInfo hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), UserInfo(ui))
		return
	}
}

// Equal compares userinfo case-sensitively.
func (ui UserInfo) Equal(val any) bool {
	switch v := val.(type) {
	case UserInfo:
		return ui == v
	case *UserInfo:
		return v != nil && ui == *v
	default:
		return false
	}
}

func (ui UserInfo) IsZero() bool { return ui == UserInfo{} }

func (ui UserInfo) IsValid() bool { return ui.Username != "" }
