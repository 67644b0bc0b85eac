package licensesdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in ErrorResponse.Error.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidCredentials = "invalid_credentials"
	CodePermissionDenied   = "permission_denied"
	CodeInvalidArgument    = "invalid_argument"
	CodeNotFound           = "not_found"
	CodeAlreadyExists      = "already_exists"
	CodeRateLimited        = "rate_limit_exceeded"
	CodeInternal           = "internal"
)

// APIError is a non-2xx response from the licensing service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("licensing: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("licensing: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// HasCode reports whether err is an APIError with code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsNotFound covers unknown and already-used delegation codes.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

func IsPermissionDenied(err error) bool { return HasCode(err, CodePermissionDenied) }

func IsInvalidArgument(err error) bool { return HasCode(err, CodeInvalidArgument) }

func IsAlreadyExists(err error) bool { return HasCode(err, CodeAlreadyExists) }

// parseErrorResponse turns a failed response into an *APIError. Bodies that
// are not ErrorResponse JSON (proxies, panics) keep the raw status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		apiErr.Code = er.Error
		apiErr.Description = er.ErrorDescription
		return apiErr
	}

	apiErr.Code = http.StatusText(resp.StatusCode)
	apiErr.Description = string(body)
	return apiErr
}
