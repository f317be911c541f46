package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/httpx"
)

// Error codes used across the gatehouse API.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeInvalidCredentials  = "invalid_credentials"
	ErrorCodeUnauthenticated     = "unauthenticated"
	ErrorCodeForbidden           = "forbidden"
	ErrorCodeServerError         = "server_error"
	ErrorCodeUpstreamUnavailable = "upstream_unavailable"
)

// APIError is the error shape shared by the server and the SDK client. The
// server writes it as an HTTP response, the client reconstructs it from one.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request is malformed or missing
	// required parameters.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidContentType is returned when the request body is not JSON.
	ErrInvalidContentType = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content type must be application/json",
	}

	// ErrInvalidCredentials is returned for a failed login. Unknown username
	// and wrong password look identical.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}

	// ErrUnauthenticated is returned when a request carries no valid session.
	ErrUnauthenticated = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthenticated,
		Description: "a valid session is required",
	}

	// ErrForbidden is returned when the session is valid but the role lacks
	// permission for the request.
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "the session does not permit this request",
	}

	// ErrServerError is returned for unexpected internal failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "unexpected server error",
	}

	// ErrUpstreamUnavailable is returned when the session store or another
	// dependency cannot be reached. The gateway fails closed.
	ErrUpstreamUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeUpstreamUnavailable,
		Description: "a backing service is unavailable, try again shortly",
	}
)
