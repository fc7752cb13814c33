package identity

import (
	"context"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
)

// AuthClient is the part of *auth.Client the gateway uses.
type AuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// Firebase signs in with Firebase ID tokens produced by the interactive
// Google sign-in of the renderer.
type Firebase struct {
	hub
	client AuthClient
}

func NewFirebase(client AuthClient) *Firebase {
	return &Firebase{client: client}
}

func (f *Firebase) SignIn(ctx context.Context, credential string) (*Identity, error) {
	idToken := strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if idToken == "" {
		return nil, ErrInvalidCredential
	}
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	id := &Identity{ID: tok.UID}
	if u, err := f.client.GetUser(ctx, tok.UID); err == nil && u.UserInfo != nil {
		id.DisplayName = u.DisplayName
		id.PhotoURL = u.PhotoURL
		id.Email = u.Email
	} else {
		// fall back to the token claims when the user record is unavailable
		id.DisplayName = claim(tok.Claims, "name")
		id.PhotoURL = claim(tok.Claims, "picture")
		id.Email = claim(tok.Claims, "email")
	}

	f.publish(id)
	return clone(id), nil
}

func claim(m map[string]interface{}, k string) string {
	if v, ok := m[k]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return ""
}
