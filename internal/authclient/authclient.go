// Package authclient talks to the external authentication provider.
//
// The portal never validates credentials or issues tokens itself. It hands
// login, registration and logout requests to a Collaborator and reports the
// outcome back to the form.
package authclient

import (
	"context"
	"errors"
	"fmt"
)

// User types understood by the provider.
const (
	UserTypeAdmin  = "admin"
	UserTypeMember = "member"
)

// Collaborator is the authentication provider as seen by the forms.
type Collaborator interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
	Register(ctx context.Context, payload RegisterPayload) (*Session, error)
	Logout(ctx context.Context, token string) error
}

// Credentials are submitted by the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload is the body of a registration request. The optional
// community fields are nil for members and present (possibly empty) for admins.
type RegisterPayload struct {
	DisplayName     string  `json:"displayName"`
	GivenName       string  `json:"givenName"`
	Surname         string  `json:"surname"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	UserType        string  `json:"user_type"`
	MobileNumber    *string `json:"mobile_number,omitempty"`
	CompanyName     *string `json:"company_name,omitempty"`
	BusinessAddress *string `json:"business_address,omitempty"`
}

// Session is what the provider returns after a successful login or registration.
type Session struct {
	AccessToken      string `json:"access_token"`
	DisplayName      string `json:"display_name"`
	Username         string `json:"username"`
	CompanyName      string `json:"company_name"`
	CommunityName    string `json:"community_name"`
	SubscriptionTier string `json:"subscription_tier"`
	UserType         string `json:"user_type"`
}

// CollaboratorError is a rejection reported by the provider. Message is
// meant for the user and may be empty.
type CollaboratorError struct {
	Status  int
	Message string
}

func (e *CollaboratorError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth provider rejected request (status %d)", e.Status)
	}
	return fmt.Sprintf("auth provider rejected request (status %d): %s", e.Status, e.Message)
}

// UserMessage returns the provider's message carried by err, or fallback
// when err carries none. Transport failures always yield fallback.
func UserMessage(err error, fallback string) string {
	var ce *CollaboratorError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return fallback
}
