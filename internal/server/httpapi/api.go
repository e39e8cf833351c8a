package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/filex"
	"github.com/dmitrijs2005/artfeed/internal/server/auth"
	"github.com/dmitrijs2005/artfeed/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	reasonNotSignedIn       = "You are not authorized to request an access token, without being a signed in user!"
	reasonUnknownKindFormat = "There are no requirements for: %s"
	reasonInvalidPageFormat = "The page must be a number, got: %s"
	reasonImageNotFound     = "The image does not exist!"
)

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "kind")
	kind, ok := auth.ParseFieldKind(name)
	if !ok {
		s.fail(w, r, common.Fail(common.ErrorNotFound, fmt.Sprintf(reasonUnknownKindFormat, name), nil))
		return
	}
	writeJSON(w, http.StatusOK, s.requirements(kind, r.URL.Query().Get("value")))
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		s.fail(w, r, common.Fail(common.ErrorUnauthorized, reasonNotSignedIn, nil))
		return
	}

	token, err := s.sessions.IssueAccessToken(user.ID)
	if err != nil {
		s.fail(w, r, fmt.Errorf("error issuing access token: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// pageParam reads the 0-based page query parameter; absent means 0.
func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.Fail(common.ErrorValidation, fmt.Sprintf(reasonInvalidPageFormat, raw), nil)
	}
	return page, nil
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	ascending, _ := strconv.ParseBool(q.Get("ascending"))

	posts, err := s.posts.FindPage(r.Context(), page, q.Get("orderBy"), ascending)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleListAuthorPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	posts, err := s.posts.FindByAuthor(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		s.fail(w, r, common.Fail(common.ErrorUnauthorized, services.ReasonUnauthorizedCreatePost, nil))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImagesPerPost*filex.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(filex.MaxImageBytes); err != nil {
		s.fail(w, r, common.Fail(common.ErrorValidation, services.ReasonInvalidPost, nil))
		return
	}

	form := services.CreatePostForm{
		Description: r.FormValue("description"),
		Tags:        r.MultipartForm.Value["tags"],
		Artists:     r.MultipartForm.Value["artists"],
	}
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			s.fail(w, r, fmt.Errorf("error opening upload: %w", err))
			return
		}
		data, _, err := filex.ReadImage(f, filex.MaxImageBytes)
		f.Close()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		form.Images = append(form.Images, data)
	}

	post, err := s.posts.CreatePost(r.Context(), user, form)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Post created", "post_id", post.ID, "author_id", user.ID)
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.DeletePost(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImage redirects to a short-lived presigned URL of the object.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key, ok := services.KeyFromURL(r.URL.Path)
	if !ok {
		s.fail(w, r, common.Fail(common.ErrorNotFound, reasonImageNotFound, nil))
		return
	}

	url, err := s.images.PresignGet(r.Context(), key)
	if err != nil {
		s.fail(w, r, fmt.Errorf("error presigning image: %w", err))
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
