package api

import (
	"context"
	"net/http"

	"github.com/iksnae/sahayak/internal"
)

const (
	opRegister      = "register"
	opLogin         = "login"
	opCurrentUser   = "current_user"
	opUpdateProfile = "update_profile"
)

// Register creates an account. A duplicate email fails with FailureValidation.
func (c *Client) Register(ctx context.Context, reg internal.Registration) (internal.APIMessage, error) {
	var msg internal.APIMessage
	err := c.do(ctx, opRegister, http.MethodPost, "/auth/register", reg, &msg, false)
	return msg, err
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (internal.AuthToken, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var token internal.AuthToken
	if err := c.do(ctx, opLogin, http.MethodPost, "/auth/login", body, &token, false); err != nil {
		return internal.AuthToken{}, err
	}
	if token.AccessToken == "" {
		return internal.AuthToken{}, &internal.APIError{Op: opLogin, Kind: internal.FailureServer, Detail: "empty access token"}
	}
	return token, nil
}

// CurrentUser fetches the account the bearer token belongs to
func (c *Client) CurrentUser(ctx context.Context) (internal.User, error) {
	var user internal.User
	if err := c.do(ctx, opCurrentUser, http.MethodGet, "/auth/me", nil, &user, true); err != nil {
		return internal.User{}, err
	}
	user.Role = internal.NormalizeRole(user.Role)
	return user, nil
}

// UpdateProfile sends the edited user and returns the server's copy
func (c *Client) UpdateProfile(ctx context.Context, user internal.User) (internal.User, error) {
	var updated internal.User
	if err := c.do(ctx, opUpdateProfile, http.MethodPatch, "/auth/me", user, &updated, true); err != nil {
		return internal.User{}, err
	}
	updated.Role = internal.NormalizeRole(updated.Role)
	return updated, nil
}
