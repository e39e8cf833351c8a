package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/logging"
)

const reasonInternal = "Something went wrong, please try again later!"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorCredentialMismatch),
		errors.Is(err, common.ErrNotAnImageFile),
		errors.Is(err, common.ErrInvalidFileData),
		errors.Is(err, common.ErrFileTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrSessionExpired),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeFail renders a failure payload: the reason plus any echoed form
// fields. Unexpected errors are logged and hidden behind a generic reason.
func writeFail(ctx context.Context, l logging.Logger, w http.ResponseWriter, err error) {
	status := statusOf(err)
	payload := map[string]string{}

	var re *common.ReasonError
	switch {
	case status == http.StatusInternalServerError:
		l.Error(ctx, err.Error())
		payload["reason"] = reasonInternal
	case errors.As(err, &re):
		for k, v := range re.Fields {
			payload[k] = v
		}
		payload["reason"] = re.Reason
	default:
		payload["reason"] = err.Error()
	}

	writeJSON(w, status, payload)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeFail(r.Context(), s.logger, w, err)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionIDKey,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionIDKey,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}
