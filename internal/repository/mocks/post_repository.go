package mocks

import (
	"context"

	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/model"
	"github.com/stretchr/testify/mock"
)

type PostRepository struct {
	mock.Mock
}

func (m *PostRepository) ListPosts(ctx context.Context) ([]model.PostDetailed, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PostDetailed), args.Error(1)
}

func (m *PostRepository) GetPost(ctx context.Context, id string) (model.PostDetailed, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return model.PostDetailed{}, args.Error(1)
	}
	return args.Get(0).(model.PostDetailed), args.Error(1)
}

func (m *PostRepository) CreatePost(ctx context.Context, arg sqlc.CreatePostParams) (sqlc.Post, error) {
	args := m.Called(ctx, arg)
	if args.Get(0) == nil {
		return sqlc.Post{}, args.Error(1)
	}
	return args.Get(0).(sqlc.Post), args.Error(1)
}

func (m *PostRepository) GetPostAuthorID(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *PostRepository) UpdatePost(ctx context.Context, arg sqlc.UpdatePostByAuthorParams) (sqlc.Post, error) {
	args := m.Called(ctx, arg)
	if args.Get(0) == nil {
		return sqlc.Post{}, args.Error(1)
	}
	return args.Get(0).(sqlc.Post), args.Error(1)
}

func (m *PostRepository) DeletePost(ctx context.Context, id, authorID string) error {
	args := m.Called(ctx, id, authorID)
	return args.Error(0)
}
