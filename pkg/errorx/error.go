package errorx

import "fmt"

// Error is the only error type domain methods return to callers. The code
// decides the http status, the message is safe to show to a client. Anything
// not representable as an Error must be logged and converted to Unknown
// before it leaves a domain.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return e.Message
}

func New(code Code, format string, a ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

var Unknown = Error{Code: Internal, Message: "Something went wrong"}
