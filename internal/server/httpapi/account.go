package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/filex"
	"github.com/dmitrijs2005/artfeed/internal/server/services"
)

const maxFormBytes = filex.MaxImageBytes + 1<<20

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := services.LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	token, err := s.accounts.Login(r.Context(), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Signed in", "username", form.Username)
	s.setSessionCookie(w, token)
	redirectHome(w, r)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	form := services.RegisterForm{
		Username:          r.PostFormValue("username"),
		Email:             r.PostFormValue("email"),
		Password:          r.PostFormValue("password"),
		ConfirmedPassword: r.PostFormValue("confirmedPassword"),
	}

	file, _, err := r.FormFile("profilePicture")
	switch {
	case err == nil:
		defer file.Close()
		form.ProfilePicture, err = filex.ToDataURL(file, filex.MaxImageBytes)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		s.fail(w, r, common.Fail(common.ErrorValidation, services.ReasonMissingFields, nil))
		return
	}

	token, err := s.accounts.Register(r.Context(), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "username", form.Username)
	s.setSessionCookie(w, token)
	redirectHome(w, r)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(common.SessionIDKey); err == nil {
		if err := s.accounts.Logout(r.Context(), cookie.Value); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.clearSessionCookie(w)
	redirectHome(w, r)
}

func (s *Server) handleChangeUsername(w http.ResponseWriter, r *http.Request) {
	form := services.ChangeUsernameForm{
		NewUsername: r.PostFormValue("newUsername"),
	}

	msg, err := s.accounts.ChangeUsername(r.Context(), UserFromContext(r.Context()), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	form := services.ChangePasswordForm{
		OldPassword:          r.PostFormValue("oldPassword"),
		NewPassword:          r.PostFormValue("newPassword"),
		ConfirmedNewPassword: r.PostFormValue("confirmedNewPassword"),
	}

	msg, err := s.accounts.ChangePassword(r.Context(), UserFromContext(r.Context()), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := s.accounts.DeleteAccount(r.Context(), user); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Account deleted", "user_id", user.ID)
	s.clearSessionCookie(w)
	redirectHome(w, r)
}
