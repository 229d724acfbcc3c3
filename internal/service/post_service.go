package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/apperr"
	"github.com/n1207n/blog-post-api/internal/model"
	"github.com/n1207n/blog-post-api/internal/repository"
)

// PostService holds the post rules: required fields on create, forced
// publication of new posts, and author-only mutation.
//
// Mutations check in a fixed order: caller identity, post existence, then
// ownership. Storage errors are returned unwrapped so the transport can
// report the driver's own message.
type PostService interface {
	ListPosts(ctx context.Context) ([]model.PostDetailed, error)
	GetPost(ctx context.Context, id string) (model.PostDetailed, error)
	CreatePost(ctx context.Context, dto model.CreatePostDTO) (sqlc.Post, error)
	UpdatePost(ctx context.Context, id, currentUserID string, dto model.UpdatePostDTO) (sqlc.Post, error)
	DeletePost(ctx context.Context, id, currentUserID string) error
}

type postServiceImpl struct {
	postRepo repository.PostRepository
	log      *slog.Logger
}

func NewPostService(postRepo repository.PostRepository, log *slog.Logger) PostService {
	return &postServiceImpl{
		postRepo: postRepo,
		log:      log,
	}
}

func (s *postServiceImpl) ListPosts(ctx context.Context) ([]model.PostDetailed, error) {
	return s.postRepo.ListPosts(ctx)
}

func (s *postServiceImpl) GetPost(ctx context.Context, id string) (model.PostDetailed, error) {
	return s.postRepo.GetPost(ctx, id)
}

func (s *postServiceImpl) CreatePost(ctx context.Context, dto model.CreatePostDTO) (sqlc.Post, error) {
	if dto.Title == "" || dto.Content == "" || dto.AuthorID == "" {
		return sqlc.Post{}, apperr.ErrInvalidInput
	}

	id, err := uuid.NewV7()
	if err != nil {
		return sqlc.Post{}, fmt.Errorf("generate post id: %w", err)
	}

	post, err := s.postRepo.CreatePost(ctx, sqlc.CreatePostParams{
		ID:       id.String(),
		Title:    dto.Title,
		Content:  dto.Content,
		AuthorID: dto.AuthorID,
	})
	if err != nil {
		return sqlc.Post{}, err
	}

	s.log.Info("Post created", slog.String("id", post.ID), slog.String("author_id", post.AuthorID))
	return post, nil
}

func (s *postServiceImpl) UpdatePost(ctx context.Context, id, currentUserID string, dto model.UpdatePostDTO) (sqlc.Post, error) {
	if err := s.authorize(ctx, id, currentUserID); err != nil {
		return sqlc.Post{}, err
	}

	params := sqlc.UpdatePostByAuthorParams{
		ID:       id,
		AuthorID: currentUserID,
	}
	if dto.Title != nil {
		params.Title = pgtype.Text{String: *dto.Title, Valid: true}
	}
	if dto.Content != nil {
		params.Content = pgtype.Text{String: *dto.Content, Valid: true}
	}
	if dto.Published != nil {
		params.Published = pgtype.Bool{Bool: *dto.Published, Valid: true}
	}

	// The update is conditional on the author as well, so a post deleted or
	// reassigned after authorize surfaces as ErrPostNotFound.
	post, err := s.postRepo.UpdatePost(ctx, params)
	if err != nil {
		return sqlc.Post{}, err
	}

	s.log.Info("Post updated", slog.String("id", post.ID))
	return post, nil
}

func (s *postServiceImpl) DeletePost(ctx context.Context, id, currentUserID string) error {
	if err := s.authorize(ctx, id, currentUserID); err != nil {
		return err
	}

	if err := s.postRepo.DeletePost(ctx, id, currentUserID); err != nil {
		return err
	}

	s.log.Info("Post deleted", slog.String("id", id))
	return nil
}

// authorize is the author ownership check shared by update and delete.
func (s *postServiceImpl) authorize(ctx context.Context, id, currentUserID string) error {
	if currentUserID == "" {
		return apperr.ErrAuthenticationRequired
	}

	authorID, err := s.postRepo.GetPostAuthorID(ctx, id)
	if err != nil {
		return err
	}

	if authorID != currentUserID {
		s.log.Warn("Rejected mutation by non-author",
			slog.String("id", id),
			slog.String("current_user_id", currentUserID))
		return apperr.ErrNotAuthor
	}
	return nil
}
