package usecases

import (
	"context"
	"fmt"
)

// Pinger is a remote service that can confirm access to one resource.
type Pinger interface {
	Name() string
	Ping(ctx context.Context, resourceID string) error
}

// PingProvider checks credentials without reading or writing any card or event.
type PingProvider struct {
	Provider   Pinger
	ResourceID string
}

func (u PingProvider) Execute(ctx context.Context) error {
	if u.Provider == nil {
		return fmt.Errorf("provider is nil")
	}
	return u.Provider.Ping(ctx, u.ResourceID)
}
