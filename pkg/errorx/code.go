package errorx

import "net/http"

type Code int

const (
	BadRequest Code = iota + 1
	NotFound
	AlreadyExists
	PermissionDenied
	Unavailable
	TooManyRequests
	NotImplemented
	Internal
)

func (c Code) HttpStatusCode() int {
	switch c {
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case PermissionDenied:
		return http.StatusForbidden
	case Unavailable:
		return http.StatusServiceUnavailable
	case TooManyRequests:
		return http.StatusTooManyRequests
	case NotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
