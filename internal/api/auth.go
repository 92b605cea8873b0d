package api

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// Login exchanges an email or NIM and password for a token.
func (c *Client) Login(ctx context.Context, identifier, password string) (Session, error) {
	s, _, err := post[Session](ctx, c, "/login", map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	return s, err
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/logout"})
	return err
}

// RequestOTP sends a password-reset code to the account's phone.
// Returns the server message.
func (c *Client) RequestOTP(ctx context.Context, identifier string) (string, error) {
	_, msg, err := post[struct{}](ctx, c, "/forgot-password", map[string]string{
		"identifier": identifier,
	})
	return msg, err
}

// ResetPassword sets a new password using an OTP.
func (c *Client) ResetPassword(ctx context.Context, identifier, otp, password string) (string, error) {
	_, msg, err := post[struct{}](ctx, c, "/reset-password", map[string]string{
		"identifier":            identifier,
		"otp":                   otp,
		"password":              password,
		"password_confirmation": password,
	})
	return msg, err
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (User, error) {
	return get[User](ctx, c, "/profile", nil)
}

// ProfileUpdate is a partial profile edit. Empty fields are left unchanged.
type ProfileUpdate struct {
	Name       string
	Email      string
	Avatar     io.Reader
	AvatarName string
}

// UpdateProfile uploads the edit as multipart form data and returns the
// server's echo of the changed fields.
func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (User, error) {
	req := Request{Method: http.MethodPost, Path: "/profile/update", Form: map[string]string{}, Multipart: true}
	if name := strings.TrimSpace(u.Name); name != "" {
		req.Form["name"] = name
	}
	if email := strings.TrimSpace(u.Email); email != "" {
		req.Form["email"] = email
	}
	if u.Avatar != nil {
		req.Files = append(req.Files, File{Field: "avatar", Name: u.AvatarName, Reader: u.Avatar})
	}

	var out User
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, &Error{Kind: KindServer, Status: resp.Status, Method: req.Method, Path: req.Path, Err: err}
	}
	return out, nil
}
