package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/dbx"
	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/posts"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	MaxPostsPerPage  = 25
	MaxImagesPerPost = 10

	// maxPage keeps page*MaxPostsPerPage from overflowing the SQL offset.
	maxPage = math.MaxInt / MaxPostsPerPage
)

const (
	ReasonUnauthorizedCreatePost = "You are not authorized to create a post, without being a signed in user!"
	ReasonUnauthorizedDeletePost = "You are not authorized to delete a post, without being a signed in user!"
	ReasonInvalidPost            = "The post did not meet the requirements!"
	ReasonNotAnImage             = "Only image files can be posted!"
	reasonInvalidOrderFormat     = "Posts cannot be ordered by: %s"
	reasonPostDoesNotExistFormat = "A post with the id: %s does not exist!"
)

type CreatePostForm struct {
	Description string   `validate:"max=2000"`
	Tags        []string `validate:"max=20,dive,max=64"`
	Artists     []string `validate:"max=20,dive,max=64"`
	Images      [][]byte `validate:"min=1,max=10"`
}

type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	images      ImageStore
	validate    *validator.Validate
	logger      logging.Logger
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, images ImageStore, logger logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		images:      images,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

func postDoesNotExist(id string) error {
	return common.Fail(common.ErrorNotFound, fmt.Sprintf(reasonPostDoesNotExistFormat, id), nil)
}

// normalizeNames trims names and drops empty ones and repeats.
func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, dup := seen[n]; dup || n == "" {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// CreatePost uploads the images and stores the post, creating tags and
// artists that do not exist yet.
func (s *PostService) CreatePost(ctx context.Context, requester *models.User, form CreatePostForm) (*models.Post, error) {
	if requester == nil {
		return nil, common.Fail(common.ErrorUnauthorized, ReasonUnauthorizedCreatePost, nil)
	}

	echo := map[string]string{"description": form.Description}
	if err := s.validate.Struct(form); err != nil {
		return nil, common.Fail(common.ErrorValidation, ReasonInvalidPost, echo)
	}

	post := &models.Post{
		Description: strings.TrimSpace(form.Description),
		Author:      models.PublicUser{ID: requester.ID, Username: requester.Username},
		Tags:        normalizeNames(form.Tags),
		Artists:     normalizeNames(form.Artists),
		ImageURLs:   make([]string, 0, len(form.Images)),
	}

	for _, img := range form.Images {
		url, err := s.images.Put(ctx, img)
		if err != nil {
			s.discardImages(ctx, post.ImageURLs)
			if errors.Is(err, common.ErrNotAnImageFile) || errors.Is(err, common.ErrInvalidFileData) {
				return nil, common.Fail(common.ErrorValidation, ReasonNotAnImage, echo)
			}
			return nil, fmt.Errorf("error storing image: %w", err)
		}
		post.ImageURLs = append(post.ImageURLs, url)
	}

	var created *models.Post
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Posts(tx).Create(ctx, post)
		return err
	}); err != nil {
		s.discardImages(ctx, post.ImageURLs)
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	return created, nil
}

// discardImages removes uploads that no post refers to. Failures are only
// logged; the request has already failed for another reason.
func (s *PostService) discardImages(ctx context.Context, urls []string) {
	for _, url := range urls {
		key, ok := KeyFromURL(url)
		if !ok {
			continue
		}
		if err := s.images.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn(ctx, "deleting orphaned image", "key", key, "error", err)
		}
	}
}

// FindPage returns a feed page. An empty orderBy sorts by creation time;
// negative pages are clamped to the first page and pages past any possible
// offset are empty.
func (s *PostService) FindPage(ctx context.Context, page int, orderBy string, ascending bool) ([]*models.Post, error) {
	if orderBy == "" {
		orderBy = string(posts.OrderByCreatedAt)
	}
	column, ok := posts.ParseOrderBy(orderBy)
	if !ok {
		return nil, common.Fail(common.ErrorValidation, fmt.Sprintf(reasonInvalidOrderFormat, orderBy), nil)
	}

	if page > maxPage {
		return []*models.Post{}, nil
	}

	result, err := s.repomanager.Posts(s.db).FindPage(ctx, max(page, 0), MaxPostsPerPage, column, ascending)
	if err != nil {
		return nil, fmt.Errorf("error searching posts: %w", err)
	}
	return nonNil(result), nil
}

func (s *PostService) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, postDoesNotExist(id)
	}

	post, err := s.repomanager.Posts(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, postDoesNotExist(id)
		}
		return nil, fmt.Errorf("error searching post: %w", err)
	}
	return post, nil
}

// FindByAuthor lists an author's posts; unknown authors simply have none.
func (s *PostService) FindByAuthor(ctx context.Context, authorID string, page int) ([]*models.Post, error) {
	if _, err := uuid.Parse(authorID); err != nil || page > maxPage {
		return []*models.Post{}, nil
	}

	result, err := s.repomanager.Posts(s.db).FindByAuthor(ctx, max(page, 0), MaxPostsPerPage, authorID)
	if err != nil {
		return nil, fmt.Errorf("error searching posts: %w", err)
	}
	return nonNil(result), nil
}

// DeletePost removes the post if the requester wrote it. Someone else's
// post is reported exactly like a missing one.
func (s *PostService) DeletePost(ctx context.Context, requester *models.User, postID string) error {
	if requester == nil {
		return common.Fail(common.ErrorUnauthorized, ReasonUnauthorizedDeletePost, nil)
	}
	if _, err := uuid.Parse(postID); err != nil {
		return postDoesNotExist(postID)
	}

	deleted, err := s.repomanager.Posts(s.db).DeleteByID(ctx, postID, requester.ID)
	if err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}
	if !deleted {
		return postDoesNotExist(postID)
	}
	return nil
}

func nonNil(p []*models.Post) []*models.Post {
	if p == nil {
		return []*models.Post{}
	}
	return p
}
