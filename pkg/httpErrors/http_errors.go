package httpErrors

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	BadRequest          = errors.New("Bad request")
	NotFound            = errors.New("Not Found")
	InternalServerError = errors.New("Internal Server Error")
	RequestTimeoutError = errors.New("Request Timeout")
	RangeNotSatisfiable = errors.New("Requested range not satisfiable")
	RangeHeaderRequired = errors.New("Requires Range header")
)

// RestErr is the error shape every handler returns to a client.
type RestErr interface {
	Status() int
	Error() string
	Causes() interface{}
}

type RestError struct {
	ErrStatus int         `json:"status,omitempty"`
	ErrError  string      `json:"error,omitempty"`
	ErrCauses interface{} `json:"-"`
}

func (e RestError) Error() string {
	return fmt.Sprintf("status: %d - errors: %s - causes: %v", e.ErrStatus, e.ErrError, e.ErrCauses)
}

func (e RestError) Status() int {
	return e.ErrStatus
}

func (e RestError) Causes() interface{} {
	return e.ErrCauses
}

func NewRestError(status int, err string, causes interface{}) RestErr {
	return RestError{
		ErrStatus: status,
		ErrError:  err,
		ErrCauses: causes,
	}
}

func NewBadRequestError(causes interface{}) RestErr {
	return RestError{
		ErrStatus: http.StatusBadRequest,
		ErrError:  BadRequest.Error(),
		ErrCauses: causes,
	}
}

func NewNotFoundError(causes interface{}) RestErr {
	return RestError{
		ErrStatus: http.StatusNotFound,
		ErrError:  NotFound.Error(),
		ErrCauses: causes,
	}
}

func NewEntityTooLargeError(causes interface{}) RestErr {
	return RestError{
		ErrStatus: http.StatusRequestEntityTooLarge,
		ErrError:  "Request entity too large",
		ErrCauses: causes,
	}
}

func NewRangeNotSatisfiableError(causes interface{}) RestErr {
	return RestError{
		ErrStatus: http.StatusRequestedRangeNotSatisfiable,
		ErrError:  RangeNotSatisfiable.Error(),
		ErrCauses: causes,
	}
}

func NewInternalServerError(causes interface{}) RestErr {
	return RestError{
		ErrStatus: http.StatusInternalServerError,
		ErrError:  InternalServerError.Error(),
		ErrCauses: causes,
	}
}

// ParseErrors maps internal errors onto the client-facing taxonomy. Validation
// and not-found errors become 4xx responses, everything else is a 500.
func ParseErrors(err error) RestErr {
	var validationErrors validator.ValidationErrors

	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, os.ErrNotExist):
		return NewNotFoundError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewRestError(http.StatusRequestTimeout, RequestTimeoutError.Error(), err.Error())
	case errors.As(err, &validationErrors):
		return NewBadRequestError(err.Error())
	default:
		var restErr RestErr
		if errors.As(err, &restErr) {
			return restErr
		}
		return NewInternalServerError(err.Error())
	}
}

// ErrorResponse returns the status code and body for an error response.
func ErrorResponse(err error) (int, interface{}) {
	restErr := ParseErrors(err)
	return restErr.Status(), restErr
}
