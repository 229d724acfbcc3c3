package mocks

import (
	"context"

	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/model"
	"github.com/stretchr/testify/mock"
)

type PostService struct {
	mock.Mock
}

func (m *PostService) ListPosts(ctx context.Context) ([]model.PostDetailed, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PostDetailed), args.Error(1)
}

func (m *PostService) GetPost(ctx context.Context, id string) (model.PostDetailed, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return model.PostDetailed{}, args.Error(1)
	}
	return args.Get(0).(model.PostDetailed), args.Error(1)
}

func (m *PostService) CreatePost(ctx context.Context, dto model.CreatePostDTO) (sqlc.Post, error) {
	args := m.Called(ctx, dto)
	if args.Get(0) == nil {
		return sqlc.Post{}, args.Error(1)
	}
	return args.Get(0).(sqlc.Post), args.Error(1)
}

func (m *PostService) UpdatePost(ctx context.Context, id, currentUserID string, dto model.UpdatePostDTO) (sqlc.Post, error) {
	args := m.Called(ctx, id, currentUserID, dto)
	if args.Get(0) == nil {
		return sqlc.Post{}, args.Error(1)
	}
	return args.Get(0).(sqlc.Post), args.Error(1)
}

func (m *PostService) DeletePost(ctx context.Context, id, currentUserID string) error {
	args := m.Called(ctx, id, currentUserID)
	return args.Error(0)
}
