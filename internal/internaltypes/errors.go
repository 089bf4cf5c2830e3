package internaltypes

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("not found")

// RemoteServiceError is a non-success response (or transport failure) from the
// board or calendar service.
type RemoteServiceError struct {
	Service    string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteServiceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Service, e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status=%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// ConfigurationError lists every required setting that was missing or invalid.
type ConfigurationError struct {
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Missing) > 0 && e.Err != nil:
		return fmt.Sprintf("configuration: %s required; %v", strings.Join(e.Missing, ", "), e.Err)
	case len(e.Missing) > 0:
		return fmt.Sprintf("configuration: %s required", strings.Join(e.Missing, ", "))
	case e.Err != nil:
		return fmt.Sprintf("configuration: %v", e.Err)
	default:
		return "configuration: invalid"
	}
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type CredentialError struct {
	Path string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("calendar credentials %s: %v", e.Path, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Kind names the error class for logs and the run ledger.
func Kind(err error) string {
	var (
		remote *RemoteServiceError
		cfg    *ConfigurationError
		cred   *CredentialError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &remote):
		return "remote_service"
	case errors.As(err, &cfg):
		return "configuration"
	case errors.As(err, &cred):
		return "credential"
	default:
		return "internal"
	}
}
