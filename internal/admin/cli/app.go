// Package cli implements artfeedctl, the operator tool for managing user
// accounts directly against the artfeed database.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
)

const usage = `Usage: artfeedctl [flags] <command> <username>

Commands:
  useradd <username>   create an account (prompts for email and password)
  passwd  <username>   set a new password and end all sessions
  userdel <username>   delete an account and end all sessions`

var (
	ErrUsage            = errors.New("invalid usage")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrAborted          = errors.New("aborted")
)

// Admin is implemented by *services.AdminService.
type Admin interface {
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	SetPassword(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, username string) error
}

type App struct {
	admin  Admin
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(admin Admin, in io.Reader, out io.Writer) *App {
	return &App{admin: admin, reader: bufio.NewReader(in), out: out}
}

// Run executes one command given as positional arguments.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	cmd, name := args[0], args[1]

	var err error
	switch cmd {
	case "useradd":
		err = a.userAdd(ctx, name)
	case "passwd":
		err = a.passwd(ctx, name)
	case "userdel":
		err = a.userDel(ctx, name)
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	var re *common.ReasonError
	if errors.As(err, &re) {
		fmt.Fprintln(a.out, re.Reason)
	}
	return err
}

// newPassword prompts twice and returns the password once both entries agree.
func (a *App) newPassword() (string, error) {
	pw, err := GetPassword("Enter password", a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		return "", ErrPasswordMismatch
	}
	return string(pw), nil
}

func (a *App) userAdd(ctx context.Context, name string) error {
	email, err := GetSimpleText(a.reader, "Email (optional)", a.out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	password, err := a.newPassword()
	if err != nil {
		return err
	}

	user, err := a.admin.CreateUser(ctx, name, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "User %s created (id %s)\n", user.Username, user.ID)
	return nil
}

func (a *App) passwd(ctx context.Context, name string) error {
	password, err := a.newPassword()
	if err != nil {
		return err
	}

	if err := a.admin.SetPassword(ctx, name, password); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Password of %s changed\n", name)
	return nil
}

func (a *App) userDel(ctx context.Context, name string) error {
	answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete user %s and all of their posts? [y/N]", name), a.out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		return ErrAborted
	}

	if err := a.admin.DeleteUser(ctx, name); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "User %s deleted\n", name)
	return nil
}
