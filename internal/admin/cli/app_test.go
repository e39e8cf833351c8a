package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	created  []string
	email    string
	password string
	deleted  []string
	err      error
}

func (f *fakeAdmin) CreateUser(_ context.Context, username, email, password string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, username)
	f.email, f.password = email, password
	return &models.User{ID: "u-" + username, Username: username}, nil
}

func (f *fakeAdmin) SetPassword(_ context.Context, username, password string) error {
	if f.err != nil {
		return f.err
	}
	f.password = password
	return nil
}

func (f *fakeAdmin) DeleteUser(_ context.Context, username string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, username)
	return nil
}

// stubPasswords makes readPassword return the given answers in order.
func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	app := NewApp(&fakeAdmin{}, strings.NewReader(""), &out)

	assert.ErrorIs(t, app.Run(context.Background(), nil), ErrUsage)
	assert.Contains(t, out.String(), "Usage: artfeedctl")

	out.Reset()
	assert.ErrorIs(t, app.Run(context.Background(), []string{"chown", "alice"}), ErrUsage)
	assert.Contains(t, out.String(), "Unknown command: chown")
}

func TestRun_UserAdd(t *testing.T) {
	stubPasswords(t, "Str0ng!pass", "Str0ng!pass")

	admin := &fakeAdmin{}
	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader("alice@example.com\n"), &out)

	require.NoError(t, app.Run(context.Background(), []string{"useradd", "alice"}))
	assert.Equal(t, []string{"alice"}, admin.created)
	assert.Equal(t, "alice@example.com", admin.email)
	assert.Equal(t, "Str0ng!pass", admin.password)
	assert.Contains(t, out.String(), "User alice created (id u-alice)")
}

func TestRun_UserAdd_Mismatch(t *testing.T) {
	stubPasswords(t, "Str0ng!pass", "Str0ng!pasz")

	admin := &fakeAdmin{}
	app := NewApp(admin, strings.NewReader("\n"), &bytes.Buffer{})

	assert.ErrorIs(t, app.Run(context.Background(), []string{"useradd", "alice"}), ErrPasswordMismatch)
	assert.Empty(t, admin.created)
}

func TestRun_UserAdd_Rejected(t *testing.T) {
	stubPasswords(t, "weak", "weak")

	admin := &fakeAdmin{err: common.Fail(common.ErrorValidation, "The password did not meet the requirements!", nil)}
	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader("\n"), &out)

	err := app.Run(context.Background(), []string{"useradd", "alice"})
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, out.String(), "The password did not meet the requirements!")
}

func TestRun_Passwd(t *testing.T) {
	stubPasswords(t, "N3w!password", "N3w!password")

	admin := &fakeAdmin{}
	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader(""), &out)

	require.NoError(t, app.Run(context.Background(), []string{"passwd", "alice"}))
	assert.Equal(t, "N3w!password", admin.password)
	assert.Contains(t, out.String(), "Password of alice changed")
}

func TestRun_UserDel(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		admin := &fakeAdmin{}
		app := NewApp(admin, strings.NewReader("y\n"), &bytes.Buffer{})
		require.NoError(t, app.Run(context.Background(), []string{"userdel", "alice"}))
		assert.Equal(t, []string{"alice"}, admin.deleted)
	})

	t.Run("declined", func(t *testing.T) {
		admin := &fakeAdmin{}
		app := NewApp(admin, strings.NewReader("n\n"), &bytes.Buffer{})
		assert.ErrorIs(t, app.Run(context.Background(), []string{"userdel", "alice"}), ErrAborted)
		assert.Empty(t, admin.deleted)
	})

	t.Run("no answer", func(t *testing.T) {
		admin := &fakeAdmin{}
		app := NewApp(admin, strings.NewReader(""), &bytes.Buffer{})
		assert.ErrorIs(t, app.Run(context.Background(), []string{"userdel", "alice"}), ErrAborted)
		assert.Empty(t, admin.deleted)
	})
}
