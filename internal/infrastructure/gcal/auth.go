package gcal

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/example/cardsync/internal/internaltypes"
)

// Scope is full read/write access to the user's calendars.
const Scope = gcalendar.CalendarScope

// NewService opens a Calendar session from a service-account (or other
// google credential) JSON file. Every failure is a CredentialError.
func NewService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*gcalendar.Service, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, &internaltypes.CredentialError{Path: credentialsFile, Err: err}
	}
	creds, err := google.CredentialsFromJSON(ctx, data, Scope)
	if err != nil {
		return nil, &internaltypes.CredentialError{Path: credentialsFile, Err: err}
	}
	all := append([]option.ClientOption{option.WithCredentials(creds)}, opts...)
	svc, err := gcalendar.NewService(ctx, all...)
	if err != nil {
		return nil, &internaltypes.CredentialError{Path: credentialsFile, Err: fmt.Errorf("calendar service: %w", err)}
	}
	return svc, nil
}

// NewServiceWithClient skips credential handling; hc must already authorize
// its requests. endpoint may be empty.
func NewServiceWithClient(ctx context.Context, hc *http.Client, endpoint string) (*gcalendar.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return gcalendar.NewService(ctx, opts...)
}
