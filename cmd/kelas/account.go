package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/infokelas/kelas/internal/portal"
	"github.com/infokelas/kelas/internal/query"
	"github.com/infokelas/kelas/internal/validate"
)

// errNoTerminal is returned when a password must be prompted for but stdin
// is not a terminal.
var errNoTerminal = errors.New("stdin is not a terminal, pass --password")

// promptPassword reads a password from the terminal without echo.
func promptPassword(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	_, _ = fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// LoginCmd signs in and stores the session.
type LoginCmd struct {
	Identifier string `arg:"" help:"Email or NIM."`
	Password   string `help:"Password, prompted for when omitted." env:"KELAS_PASSWORD"`
}

// Run executes the login command.
func (c *LoginCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	password := c.Password
	if password == "" {
		if password, err = promptPassword(w, "Password: "); err != nil {
			return err
		}
	}
	ctx, stop := signalContext()
	defer stop()
	u, err := a.session.Login(ctx, c.Identifier, password)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%s, %s!\n", portal.Greeting(time.Now()), u.Name)
	return nil
}

// LogoutCmd signs out.
type LogoutCmd struct{}

// Run executes the logout command.
func (c *LogoutCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "Signed out.")
	return nil
}

// ProfileCmd groups the profile subcommands.
type ProfileCmd struct {
	Show   ProfileShowCmd   `cmd:"" default:"withargs" help:"Show your profile."`
	Update ProfileUpdateCmd `cmd:"" help:"Change your name, email or avatar."`
}

// ProfileShowCmd prints the signed-in student.
type ProfileShowCmd struct {
	Refresh bool `help:"Fetch from the server instead of the stored copy."`
}

// Run executes the profile show command.
func (c *ProfileShowCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}

	if c.Refresh {
		a.cache.Invalidate(portal.ProfileKey())
	}
	ctx, stop := signalContext()
	defer stop()
	u, err := query.Fetch(ctx, a.cache, a.catalog.Profile())
	if err != nil {
		return err
	}
	if c.Refresh {
		if err := a.store.SaveUser(u); err != nil {
			return err
		}
	}
	writeFields(w, u.Name, [][2]string{
		{"Email", u.Email},
		{"NIM", u.NIM},
		{"Avatar", u.AvatarURL},
	})
	return nil
}

// ProfileUpdateCmd sends a partial profile change.
type ProfileUpdateCmd struct {
	Name   string `help:"New display name."`
	Email  string `help:"New email address."`
	Avatar string `help:"Image file to upload as avatar." type:"existingfile"`
}

// Run executes the profile update command.
func (c *ProfileUpdateCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	u, err := a.session.UpdateProfile(ctx, a.catalog, portal.ProfileEdit{
		Name:       c.Name,
		Email:      c.Email,
		AvatarPath: c.Avatar,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "Profile updated.")
	writeFields(w, u.Name, [][2]string{
		{"Email", u.Email},
		{"Avatar", u.AvatarURL},
	})
	return nil
}

// ForgotPasswordCmd requests a reset code.
type ForgotPasswordCmd struct {
	Identifier string `arg:"" help:"Email or NIM."`
}

// Run executes the forgot-password command.
func (c *ForgotPasswordCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	msg, err := a.session.RequestOTP(ctx, c.Identifier)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, msg)
	return nil
}

// ResetPasswordCmd sets a new password with the code from forgot-password.
type ResetPasswordCmd struct {
	Identifier string `arg:"" help:"Email or NIM."`
	OTP        string `name:"otp" required:"" help:"Six digit reset code."`
	Password   string `help:"New password, prompted for when omitted." env:"KELAS_NEW_PASSWORD"`
}

// Run executes the reset-password command.
func (c *ResetPasswordCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	password, confirmation := c.Password, c.Password
	if password == "" {
		if password, err = promptPassword(w, "New password: "); err != nil {
			return err
		}
		if confirmation, err = promptPassword(w, "Repeat new password: "); err != nil {
			return err
		}
	}
	ctx, stop := signalContext()
	defer stop()
	msg, err := a.session.ResetPassword(ctx, validate.ResetPassword{
		Identifier:           c.Identifier,
		OTP:                  c.OTP,
		Password:             password,
		PasswordConfirmation: confirmation,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, msg)
	return nil
}

// ThemeCmd shows or sets the dashboard theme.
type ThemeCmd struct {
	Theme string `arg:"" optional:"" help:"light or dark; omit to show the current theme."`
}

// Run executes the theme command.
func (c *ThemeCmd) Run(g *Globals, w io.Writer) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Theme != "" {
		if err := a.store.SetTheme(c.Theme); err != nil {
			return err
		}
	}
	theme, err := a.store.Theme()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, theme)
	return nil
}
