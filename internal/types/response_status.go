package types

import "strconv"

const (
	ResponseStatusTrying          ResponseStatus = 100
	ResponseStatusRinging         ResponseStatus = 180
	ResponseStatusSessionProgress ResponseStatus = 183

	ResponseStatusOK       ResponseStatus = 200
	ResponseStatusAccepted ResponseStatus = 202

	ResponseStatusMovedTemporarily ResponseStatus = 302

	ResponseStatusBadRequest                  ResponseStatus = 400
	ResponseStatusUnauthorized                ResponseStatus = 401
	ResponseStatusForbidden                   ResponseStatus = 403
	ResponseStatusNotFound                    ResponseStatus = 404
	ResponseStatusMethodNotAllowed            ResponseStatus = 405
	ResponseStatusProxyAuthenticationRequired ResponseStatus = 407
	ResponseStatusRequestTimeout              ResponseStatus = 408
	ResponseStatusRequestEntityTooLarge       ResponseStatus = 413
	ResponseStatusUnsupportedURIScheme        ResponseStatus = 416
	ResponseStatusBadExtension                ResponseStatus = 420
	ResponseStatusTemporarilyUnavailable      ResponseStatus = 480
	ResponseStatusCallTransactionDoesNotExist ResponseStatus = 481
	ResponseStatusBusyHere                    ResponseStatus = 486
	ResponseStatusRequestTerminated           ResponseStatus = 487

	ResponseStatusServerInternalError ResponseStatus = 500
	ResponseStatusNotImplemented      ResponseStatus = 501
	ResponseStatusServiceUnavailable  ResponseStatus = 503
	ResponseStatusMessageTooLarge     ResponseStatus = 513

	ResponseStatusBusyEverywhere ResponseStatus = 600
	ResponseStatusDecline        ResponseStatus = 603
)

// ResponseStatus is a three-digit SIP status code.
type ResponseStatus uint

func (s ResponseStatus) IsValid() bool { return s >= 100 && s < 700 }

func (s ResponseStatus) IsProvisional() bool { return s >= 100 && s < 200 }

func (s ResponseStatus) IsFinal() bool { return s >= 200 && s < 700 }

// Reason returns the default reason phrase of the status or empty string for unknown codes.
func (s ResponseStatus) Reason() string { return responseReasons[s] }

func (s ResponseStatus) String() string { return strconv.FormatUint(uint64(s), 10) }

var responseReasons = map[ResponseStatus]string{
	ResponseStatusTrying:                      "Trying",
	ResponseStatusRinging:                     "Ringing",
	ResponseStatusSessionProgress:             "Session Progress",
	ResponseStatusOK:                          "OK",
	ResponseStatusAccepted:                    "Accepted",
	ResponseStatusMovedTemporarily:            "Moved Temporarily",
	ResponseStatusBadRequest:                  "Bad Request",
	ResponseStatusUnauthorized:                "Unauthorized",
	ResponseStatusForbidden:                   "Forbidden",
	ResponseStatusNotFound:                    "Not Found",
	ResponseStatusMethodNotAllowed:            "Method Not Allowed",
	ResponseStatusProxyAuthenticationRequired: "Proxy Authentication Required",
	ResponseStatusRequestTimeout:              "Request Timeout",
	ResponseStatusRequestEntityTooLarge:       "Request Entity Too Large",
	ResponseStatusUnsupportedURIScheme:        "Unsupported URI Scheme",
	ResponseStatusBadExtension:                "Bad Extension",
	ResponseStatusTemporarilyUnavailable:      "Temporarily Unavailable",
	ResponseStatusCallTransactionDoesNotExist: "Call/Transaction Does Not Exist",
	ResponseStatusBusyHere:                    "Busy Here",
	ResponseStatusRequestTerminated:           "Request Terminated",
	ResponseStatusServerInternalError:         "Server Internal Error",
	ResponseStatusNotImplemented:              "Not Implemented",
	ResponseStatusServiceUnavailable:          "Service Unavailable",
	ResponseStatusMessageTooLarge:             "Message Too Large",
	ResponseStatusBusyEverywhere:              "Busy Everywhere",
	ResponseStatusDecline:                     "Decline",
}
