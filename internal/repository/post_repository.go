package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/apperr"
	"github.com/n1207n/blog-post-api/internal/metrics"
	"github.com/n1207n/blog-post-api/internal/model"
)

// PostRepository is the storage port of the post service. Lookups of a
// missing post return apperr.ErrPostNotFound; any other error is the
// storage layer's own.
type PostRepository interface {
	ListPosts(ctx context.Context) ([]model.PostDetailed, error)
	GetPost(ctx context.Context, id string) (model.PostDetailed, error)
	CreatePost(ctx context.Context, arg sqlc.CreatePostParams) (sqlc.Post, error)
	GetPostAuthorID(ctx context.Context, id string) (string, error)
	// UpdatePost only touches the row when both id and author match.
	UpdatePost(ctx context.Context, arg sqlc.UpdatePostByAuthorParams) (sqlc.Post, error)
	// DeletePost only removes the row when both id and author match.
	DeletePost(ctx context.Context, id, authorID string) error
}

type DBPostRepository struct {
	q   sqlc.Querier
	log *slog.Logger
}

func NewDBPostRepository(querier sqlc.Querier, log *slog.Logger) PostRepository {
	return &DBPostRepository{q: querier, log: log}
}

func (r *DBPostRepository) ListPosts(ctx context.Context) ([]model.PostDetailed, error) {
	defer observe("list_posts")()
	rows, err := r.q.ListPostsWithAuthor(ctx)
	countQuery("list_posts", err)
	if err != nil {
		r.log.Error("Error listing posts", slog.String("error", err.Error()))
		return nil, err
	}

	posts := make([]model.PostDetailed, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, model.PostDetailed{Post: row.Post, Author: row.AuthUser})
	}
	return posts, nil
}

func (r *DBPostRepository) GetPost(ctx context.Context, id string) (model.PostDetailed, error) {
	defer observe("get_post")()
	row, err := r.q.GetPostWithAuthor(ctx, id)
	countQuery("get_post", err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.log.Debug("Post not found by id", slog.String("id", id))
			return model.PostDetailed{}, apperr.ErrPostNotFound
		}
		r.log.Error("Error getting post by id", slog.String("id", id), slog.String("error", err.Error()))
		return model.PostDetailed{}, err
	}
	return model.PostDetailed{Post: row.Post, Author: row.AuthUser}, nil
}

func (r *DBPostRepository) CreatePost(ctx context.Context, arg sqlc.CreatePostParams) (sqlc.Post, error) {
	defer observe("create_post")()
	post, err := r.q.CreatePost(ctx, arg)
	countQuery("create_post", err)
	if err != nil {
		r.log.Error("Error creating post", slog.String("author_id", arg.AuthorID), slog.String("error", err.Error()))
		return sqlc.Post{}, err
	}
	return post, nil
}

func (r *DBPostRepository) GetPostAuthorID(ctx context.Context, id string) (string, error) {
	defer observe("get_post_author_id")()
	authorID, err := r.q.GetPostAuthorID(ctx, id)
	countQuery("get_post_author_id", err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.log.Debug("Post not found by id during author lookup", slog.String("id", id))
			return "", apperr.ErrPostNotFound
		}
		r.log.Error("Error getting post author", slog.String("id", id), slog.String("error", err.Error()))
		return "", err
	}
	return authorID, nil
}

func (r *DBPostRepository) UpdatePost(ctx context.Context, arg sqlc.UpdatePostByAuthorParams) (sqlc.Post, error) {
	defer observe("update_post")()
	post, err := r.q.UpdatePostByAuthor(ctx, arg)
	countQuery("update_post", err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.log.Debug("No post matched id and author during update",
				slog.String("id", arg.ID), slog.String("author_id", arg.AuthorID))
			return sqlc.Post{}, apperr.ErrPostNotFound
		}
		r.log.Error("Error updating post", slog.String("id", arg.ID), slog.String("error", err.Error()))
		return sqlc.Post{}, err
	}
	return post, nil
}

func (r *DBPostRepository) DeletePost(ctx context.Context, id, authorID string) error {
	defer observe("delete_post")()
	affected, err := r.q.DeletePostByAuthor(ctx, sqlc.DeletePostByAuthorParams{ID: id, AuthorID: authorID})
	countQuery("delete_post", err)
	if err != nil {
		r.log.Error("Error deleting post", slog.String("id", id), slog.String("error", err.Error()))
		return err
	}
	if affected == 0 {
		r.log.Debug("No post matched id and author during delete",
			slog.String("id", id), slog.String("author_id", authorID))
		return apperr.ErrPostNotFound
	}
	return nil
}

func observe(query string) func() {
	start := time.Now()
	return func() {
		metrics.PostDBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}

// countQuery treats pgx.ErrNoRows as a successful round trip.
func countQuery(query string, err error) {
	status := "ok"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	metrics.PostDBQueries.WithLabelValues(query, status).Inc()
}
