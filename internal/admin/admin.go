// Package admin implements the operator tool that bootstraps administrator
// accounts. Self-registration over HTTP always creates ordinary users, so
// this is the only way to obtain the admin role.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// UserCreator is the part of services.UserService the tool needs.
type UserCreator interface {
	Create(ctx context.Context, in services.CreateUserInput) (*models.SafeUser, error)
}

type App struct {
	users   UserCreator
	in      *bufio.Reader
	out     io.Writer
	stdinFd int
}

func NewApp(users UserCreator, in io.Reader, out io.Writer, stdinFd int) *App {
	return &App{users: users, in: bufio.NewReader(in), out: out, stdinFd: stdinFd}
}

// CreateAdmin creates an admin user. Empty email or name are prompted for;
// the password is always read from the terminal twice.
func (a *App) CreateAdmin(ctx context.Context, email, name string) (*models.SafeUser, error) {
	var err error
	if email == "" {
		if email, err = GetSimpleText(a.in, "Email", a.out); err != nil {
			return nil, err
		}
	}
	if name == "" {
		if name, err = GetSimpleText(a.in, "Name", a.out); err != nil {
			return nil, err
		}
	}

	password, err := GetPassword(a.stdinFd, "Password", a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := GetPassword(a.stdinFd, "Repeat password", a.out)
	if err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	user, err := a.users.Create(ctx, services.CreateUserInput{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Created admin %s (id %d)\n", user.Email, user.ID)
	return user, nil
}

// Describe renders err for the terminal, including field details of
// validation failures.
func Describe(err error) string {
	ae, ok := apperr.As(err)
	if !ok {
		return err.Error()
	}
	msg := ae.PublicMessage()
	for _, d := range ae.Details {
		msg += fmt.Sprintf("\n  %s: %s", d.Field, d.Message)
	}
	return msg
}
