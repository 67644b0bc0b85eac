// Package firebase adapts Firebase Authentication to the licensing service:
// ID-token verification, custom-claims publication and member sign-up.
package firebase

import (
	"context"
	"fmt"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Custom claim keys read by the mobile app and written by reconciliation.
const (
	ClaimLicenseID = "licenseId"
	ClaimRole      = "role"
)

// NewAuthClient initialises a Firebase app for projectID and returns its
// Auth client. Credentials come from opts or the ambient environment.
func NewAuthClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*auth.Client, error) {
	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: new app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: auth client: %w", err)
	}
	return client, nil
}
