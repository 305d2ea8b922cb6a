package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNoAPIKey is returned when neither an override nor the environment supplies a key.
var ErrNoAPIKey = errors.New("no API key configured")

// APIError is a non-2xx response from the provider.
type APIError struct {
	HTTPStatus int
	Code       int
	Status     string // e.g. "INVALID_ARGUMENT"
	Reason     string // from error details, e.g. "API_KEY_INVALID"
	Message    string

	cause error
}

func (e *APIError) Unwrap() error { return e.cause }

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "provider error %d", e.HTTPStatus)
	if e.Status != "" {
		b.WriteString(" " + e.Status)
	}
	if e.Reason != "" {
		b.WriteString(" (" + e.Reason + ")")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// convertError turns an SDK HTTP failure into an *APIError. gRPC and
// transport errors are returned unchanged.
func convertError(err error) error {
	var ae *apierror.APIError
	if !errors.As(err, &ae) {
		if ae, _ = apierror.FromError(err); ae == nil {
			return err
		}
	}
	var herr *googleapi.Error
	if ae.HTTPCode() < 0 || !errors.As(ae, &herr) {
		return err
	}
	out := &APIError{
		HTTPStatus: herr.Code,
		Code:       herr.Code,
		Reason:     ae.Reason(),
		Message:    herr.Message,
		cause:      err,
	}
	var body struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(herr.Body), &body) == nil {
		out.Status = body.Error.Status
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(herr.Body)
	}
	return out
}

var credentialReasons = map[string]bool{
	"API_KEY_INVALID":               true,
	"API_KEY_EXPIRED":               true,
	"API_KEY_SERVICE_BLOCKED":       true,
	"API_KEY_HTTP_REFERRER_BLOCKED": true,
}

// IsCredentialError reports whether err means the API key is missing,
// invalid or not permitted. Such errors are not worth retrying on another model.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoAPIKey) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if credentialReasons[apiErr.Reason] {
			return true
		}
		switch apiErr.Status {
		case "UNAUTHENTICATED", "PERMISSION_DENIED":
			return true
		}
		if apiErr.HTTPStatus == http.StatusUnauthorized || apiErr.HTTPStatus == http.StatusForbidden {
			return true
		}
		return mentionsAPIKey(apiErr.Message)
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return true
		}
		return mentionsAPIKey(s.Message())
	}
	return mentionsAPIKey(err.Error())
}

func mentionsAPIKey(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "api key not valid") || strings.Contains(msg, "api_key_invalid")
}
