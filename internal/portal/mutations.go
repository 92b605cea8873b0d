package portal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/query"
	"github.com/infokelas/kelas/internal/validate"
)

// JoinClass joins a class by code and invalidates the class list. The code
// is checked locally before any request is made.
func (c *Catalog) JoinClass() query.Mutation[string, string] {
	return query.Mutation[string, string]{
		Do: func(ctx context.Context, code string) (string, error) {
			code = strings.TrimSpace(code)
			if err := validate.Struct(validate.JoinClass{Code: code}); err != nil {
				return "", err
			}
			return c.api.JoinClass(ctx, code)
		},
		Reconcile: []query.Reconciler[string, string]{
			query.InvalidateOnSuccess[string, string](MyClassroomsKey()),
		},
	}
}

// ProfileEdit is a partial profile change; AvatarPath is a local image file.
type ProfileEdit struct {
	Name       string
	Email      string
	AvatarPath string
}

// UpdateProfile uploads the edit and merges the server's echo into the
// cached profile, so the new name shows without a refetch.
func (c *Catalog) UpdateProfile() query.Mutation[ProfileEdit, api.User] {
	return query.Mutation[ProfileEdit, api.User]{
		Do: func(ctx context.Context, e ProfileEdit) (api.User, error) {
			form := validate.Profile{Name: e.Name, Email: e.Email, Avatar: e.AvatarPath}
			if err := validate.Struct(form); err != nil {
				return api.User{}, err
			}
			u := api.ProfileUpdate{Name: e.Name, Email: e.Email}
			if e.AvatarPath != "" {
				f, err := os.Open(e.AvatarPath)
				if err != nil {
					return api.User{}, fmt.Errorf("portal: opening avatar: %w", err)
				}
				defer f.Close()
				u.Avatar, u.AvatarName = f, filepath.Base(e.AvatarPath)
			}
			return c.api.UpdateProfile(ctx, u)
		},
		Reconcile: []query.Reconciler[ProfileEdit, api.User]{
			query.UpdateOnSuccess[ProfileEdit, api.User](ProfileKey(), func(old any, ok bool, echo api.User) any {
				prev, _ := old.(api.User)
				return MergeUser(prev, echo)
			}),
		},
	}
}

// MergeUser overlays the non-empty fields of patch on base.
func MergeUser(base, patch api.User) api.User {
	if patch.ID != 0 {
		base.ID = patch.ID
	}
	if patch.Name != "" {
		base.Name = patch.Name
	}
	if patch.Email != "" {
		base.Email = patch.Email
	}
	if patch.NIM != "" {
		base.NIM = patch.NIM
	}
	if patch.AvatarURL != "" {
		base.AvatarURL = patch.AvatarURL
	}
	return base
}
