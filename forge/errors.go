package forge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// RemoteError captures a normalized forge response failure. Connectivity
// failures are represented separately: they wrap the transport error and
// carry no status.
type RemoteError struct {
	Operation string
	Status    int
	Code      string
	Message   string
	Err       error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "forge error"
	}

	scope := "forge"
	if e.Operation != "" {
		scope = fmt.Sprintf("forge %s", e.Operation)
	}

	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Message)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s failed: status %d", scope, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConflict reports whether err is a forge response with HTTP 409.
func IsConflict(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status == http.StatusConflict
	}
	return false
}

// IsNotFound reports whether err is a forge response with HTTP 404.
func IsNotFound(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status == http.StatusNotFound
	}
	return false
}

// IsConnectivity reports whether err never produced a forge response: dial
// failures, timeouts, cancelled contexts, connection resets.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}

	var re *RemoteError
	if errors.As(err, &re) {
		if re.Status != 0 {
			return false
		}
		if re.Err == nil {
			return false
		}
		err = re.Err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func remoteError(operation string, status int, code, message string, err error) *RemoteError {
	return &RemoteError{
		Operation: operation,
		Status:    status,
		Code:      code,
		Message:   message,
		Err:       err,
	}
}

func connectivityError(operation string, err error) *RemoteError {
	return &RemoteError{
		Operation: operation,
		Message:   "request failed",
		Err:       err,
	}
}
