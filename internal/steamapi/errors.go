package steamapi

import "errors"

// Op identifies which API operation a request or error belongs to.
type Op int

const (
	OpAuth Op = iota
	OpFriends
	OpLogon
	OpRelogon
	OpLogoff
	OpMessage
	OpPoll
	OpSummaries
)

var opNames = map[Op]string{
	OpAuth:      "Authentication",
	OpFriends:   "Friends",
	OpLogon:     "Logon",
	OpRelogon:   "Relogon",
	OpLogoff:    "Logoff",
	OpMessage:   "Message",
	OpPoll:      "Polling",
	OpSummaries: "Summaries",
}

// String returns the display name used to prefix delivered errors.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "Generic"
}

// Code classifies an API failure.
type Code int

const (
	// CodeTransport is a network-level failure, passed through unmodified.
	CodeTransport Code = iota
	// CodeParser is a malformed JSON response body.
	CodeParser
	CodeAuth
	// CodeAuthGuard means the server wants a Steam Guard email code.
	CodeAuthGuard
	CodeFriends
	CodeLogon
	CodeRelogon
	CodeLogoff
	CodeMessage
	CodePoll
	CodeSummaries
)

// Error is a failure scoped to a single API request. Message keeps the
// server's own text where one was reported.
type Error struct {
	Op      Op
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Op.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newError(op Op, code Code, message string) *Error {
	return &Error{Op: op, Code: code, Message: message}
}

func transportError(op Op, err error) *Error {
	return &Error{Op: op, Code: CodeTransport, Message: err.Error(), cause: err}
}

func parserError(op Op, err error) *Error {
	return &Error{Op: op, Code: CodeParser, Message: "Parser: " + err.Error(), cause: err}
}

// GuardCodeRequired reports whether err is an authentication failure
// asking for a Steam Guard email code.
func GuardCodeRequired(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeAuthGuard
}
