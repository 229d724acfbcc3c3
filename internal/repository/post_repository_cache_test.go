//go:build unit

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/apperr"
	"github.com/n1207n/blog-post-api/internal/logger"
	"github.com/n1207n/blog-post-api/internal/model"
	"github.com/n1207n/blog-post-api/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 14, 15, 9, 26, 535000, time.UTC)

func detailedPost(id string, createdAt time.Time) model.PostDetailed {
	return model.PostDetailed{
		Post: sqlc.Post{
			ID:        id,
			Title:     "title " + id,
			Content:   "content " + id,
			Published: true,
			AuthorID:  "u1",
			CreatedAt: createdAt,
		},
		Author: sqlc.AuthUser{ID: "u1", Email: "u1@example.com"},
	}
}

func newCachedRepo() (PostRepository, redismock.ClientMock, *mocks.PostRepository) {
	db, rdbMock := redismock.NewClientMock()
	mockRepo := new(mocks.PostRepository)
	return NewCachedPostRepository(mockRepo, db, logger.Discard()), rdbMock, mockRepo
}

func TestGetPost_CacheHit(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	post := detailedPost("p1", baseTime)
	postJSON, _ := json.Marshal(post)
	rdbMock.ExpectGet(fmt.Sprintf(postKeyPattern, "p1")).SetVal(string(postJSON))

	result, err := repo.GetPost(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, post, result)
	mockRepo.AssertNotCalled(t, "GetPost", mock.Anything, mock.Anything)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func expectStorePost(rdbMock redismock.ClientMock, gen string, post model.PostDetailed) *redismock.ExpectedCmd {
	postJSON, _ := json.Marshal(post)
	return rdbMock.ExpectEval(storePostScript,
		[]string{postGenKey, fmt.Sprintf(postKeyPattern, post.Post.ID)},
		gen, "3600", string(postJSON))
}

func expectStoreFeed(rdbMock redismock.ClientMock, gen string, posts ...model.PostDetailed) *redismock.ExpectedCmd {
	keys := []string{postGenKey, postFeedKey}
	args := []interface{}{gen, "3600"}
	for _, p := range posts {
		postJSON, _ := json.Marshal(p)
		keys = append(keys, fmt.Sprintf(postKeyPattern, p.Post.ID))
		args = append(args, string(postJSON), strconv.FormatInt(p.Post.CreatedAt.UnixMicro(), 10), p.Post.ID)
	}
	return rdbMock.ExpectEval(storeFeedScript, keys, args...)
}

func TestGetPost_CacheMiss(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	post := detailedPost("p1", baseTime)

	rdbMock.ExpectGet(fmt.Sprintf(postKeyPattern, "p1")).RedisNil()
	rdbMock.ExpectGet(postGenKey).SetVal("3")
	mockRepo.On("GetPost", mock.Anything, "p1").Return(post, nil).Once()
	expectStorePost(rdbMock, "3", post).SetVal(int64(1))

	result, err := repo.GetPost(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, post, result)
	mockRepo.AssertExpectations(t)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestGetPost_MissingGenerationIsZero(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	post := detailedPost("p1", baseTime)

	rdbMock.ExpectGet(fmt.Sprintf(postKeyPattern, "p1")).RedisNil()
	rdbMock.ExpectGet(postGenKey).RedisNil()
	mockRepo.On("GetPost", mock.Anything, "p1").Return(post, nil).Once()
	expectStorePost(rdbMock, "0", post).SetVal(int64(1))

	_, err := repo.GetPost(context.Background(), "p1")

	require.NoError(t, err)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestGetPost_NotFoundIsNotCached(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	rdbMock.ExpectGet(fmt.Sprintf(postKeyPattern, "missing")).RedisNil()
	rdbMock.ExpectGet(postGenKey).SetVal("3")
	mockRepo.On("GetPost", mock.Anything, "missing").Return(nil, apperr.ErrPostNotFound).Once()

	_, err := repo.GetPost(context.Background(), "missing")

	assert.ErrorIs(t, err, apperr.ErrPostNotFound)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestGetPost_RedisErrorFallsBackToDB(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	post := detailedPost("p1", baseTime)

	rdbMock.ExpectGet(fmt.Sprintf(postKeyPattern, "p1")).SetErr(errors.New("connection refused"))
	rdbMock.ExpectGet(postGenKey).SetErr(errors.New("connection refused"))
	mockRepo.On("GetPost", mock.Anything, "p1").Return(post, nil).Once()

	result, err := repo.GetPost(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, post, result)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestGetPost_DeleteDuringFetchIsNotCached(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()
	ctx := context.Background()

	post := detailedPost("p1", baseTime)
	postKey := fmt.Sprintf(postKeyPattern, "p1")

	// The DB read returns the post, then a delete commits before write back.
	rdbMock.ExpectGet(postKey).RedisNil()
	rdbMock.ExpectGet(postGenKey).SetVal("7")
	mockRepo.On("GetPost", mock.Anything, "p1").Return(post, nil).Once().Run(func(mock.Arguments) {
		require.NoError(t, repo.DeletePost(ctx, "p1", "u1"))
	})
	mockRepo.On("DeletePost", mock.Anything, "p1", "u1").Return(nil).Once()
	rdbMock.ExpectIncr(postGenKey).SetVal(8)
	rdbMock.ExpectDel(postKey).SetVal(0)
	rdbMock.ExpectZRem(postFeedKey, "p1").SetVal(0)
	expectStorePost(rdbMock, "7", post).SetVal(int64(0))

	_, err := repo.GetPost(ctx, "p1")
	require.NoError(t, err)

	// Nothing was written back, so the next read goes to the DB again.
	rdbMock.ExpectGet(postKey).RedisNil()
	rdbMock.ExpectGet(postGenKey).SetVal("8")
	mockRepo.On("GetPost", mock.Anything, "p1").Return(nil, apperr.ErrPostNotFound).Once()

	_, err = repo.GetPost(ctx, "p1")

	assert.ErrorIs(t, err, apperr.ErrPostNotFound)
	mockRepo.AssertExpectations(t)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestListPosts_FullCacheHit(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	posts := []model.PostDetailed{
		detailedPost("p2", baseTime),
		detailedPost("p1", baseTime.Add(-time.Minute)),
	}
	postKeys := make([]string, len(posts))
	postJSONs := make([]interface{}, len(posts))
	for i, p := range posts {
		jsonBytes, _ := json.Marshal(p)
		postKeys[i] = fmt.Sprintf(postKeyPattern, p.Post.ID)
		postJSONs[i] = string(jsonBytes)
	}

	rdbMock.ExpectZRevRange(postFeedKey, 0, -1).SetVal([]string{"p2", "p1"})
	rdbMock.ExpectMGet(postKeys...).SetVal(postJSONs)

	result, err := repo.ListPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, posts, result)
	mockRepo.AssertNotCalled(t, "ListPosts", mock.Anything)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestListPosts_PartialCacheHit(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	post2 := detailedPost("p2", baseTime)
	post1 := detailedPost("p1", baseTime.Add(-time.Minute))
	post2JSON, _ := json.Marshal(post2)

	rdbMock.ExpectZRevRange(postFeedKey, 0, -1).SetVal([]string{"p2", "p1"})
	rdbMock.ExpectMGet(fmt.Sprintf(postKeyPattern, "p2"), fmt.Sprintf(postKeyPattern, "p1")).
		SetVal([]interface{}{string(post2JSON), nil})

	// For partial hit, return all data from DB
	dbPosts := []model.PostDetailed{post2, post1}
	rdbMock.ExpectGet(postGenKey).SetVal("2")
	mockRepo.On("ListPosts", mock.Anything).Return(dbPosts, nil).Once()
	expectStoreFeed(rdbMock, "2", post2, post1).SetVal(int64(1))

	result, err := repo.ListPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, dbPosts, result)
	mockRepo.AssertExpectations(t)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestListPosts_CacheMiss(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	post := detailedPost("p1", baseTime)

	rdbMock.ExpectZRevRange(postFeedKey, 0, -1).SetVal([]string{})
	rdbMock.ExpectGet(postGenKey).SetVal("2")
	mockRepo.On("ListPosts", mock.Anything).Return([]model.PostDetailed{post}, nil).Once()
	expectStoreFeed(rdbMock, "2", post).SetVal(int64(1))

	result, err := repo.ListPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.PostDetailed{post}, result)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestListPosts_EmptyFeedIsNotCached(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	rdbMock.ExpectZRevRange(postFeedKey, 0, -1).SetVal([]string{})
	rdbMock.ExpectGet(postGenKey).SetVal("2")
	mockRepo.On("ListPosts", mock.Anything).Return([]model.PostDetailed{}, nil).Once()

	result, err := repo.ListPosts(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestListPosts_CreateDuringListingIsNotCached(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()
	ctx := context.Background()

	older := detailedPost("p1", baseTime.Add(-time.Minute))
	newer := detailedPost("p2", baseTime)
	params := sqlc.CreatePostParams{ID: "p2", Title: newer.Post.Title, Content: newer.Post.Content, AuthorID: "u1"}

	// The listing snapshot misses p2, whose create finishes before write back.
	rdbMock.ExpectZRevRange(postFeedKey, 0, -1).SetVal([]string{})
	rdbMock.ExpectGet(postGenKey).SetVal("4")
	mockRepo.On("ListPosts", mock.Anything).Return([]model.PostDetailed{older}, nil).Once().Run(func(mock.Arguments) {
		_, err := repo.CreatePost(ctx, params)
		require.NoError(t, err)
	})
	mockRepo.On("CreatePost", mock.Anything, params).Return(newer.Post, nil).Once()
	rdbMock.ExpectIncr(postGenKey).SetVal(5)
	rdbMock.ExpectDel(postFeedKey).SetVal(0)
	expectStoreFeed(rdbMock, "4", older).SetVal(int64(0))

	first, err := repo.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	// The stale snapshot was refused, so the next listing sees the new post.
	rdbMock.ExpectZRevRange(postFeedKey, 0, -1).SetVal([]string{})
	rdbMock.ExpectGet(postGenKey).SetVal("5")
	mockRepo.On("ListPosts", mock.Anything).Return([]model.PostDetailed{newer, older}, nil).Once()
	expectStoreFeed(rdbMock, "5", newer, older).SetVal(int64(1))

	second, err := repo.ListPosts(ctx)

	require.NoError(t, err)
	assert.Equal(t, []model.PostDetailed{newer, older}, second)
	mockRepo.AssertExpectations(t)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestCreatePost_InvalidatesFeed(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	params := sqlc.CreatePostParams{ID: "p3", Title: "T", Content: "C", AuthorID: "u1"}
	created := sqlc.Post{ID: "p3", Title: "T", Content: "C", Published: true, AuthorID: "u1", CreatedAt: baseTime}
	mockRepo.On("CreatePost", mock.Anything, params).Return(created, nil).Once()
	rdbMock.ExpectIncr(postGenKey).SetVal(1)
	rdbMock.ExpectDel(postFeedKey).SetVal(1)

	result, err := repo.CreatePost(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, created, result)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestCreatePost_FailureLeavesCache(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	params := sqlc.CreatePostParams{ID: "p3", Title: "T", Content: "C", AuthorID: "ghost"}
	mockRepo.On("CreatePost", mock.Anything, params).Return(nil, errors.New("foreign key violation")).Once()

	_, err := repo.CreatePost(context.Background(), params)

	assert.EqualError(t, err, "foreign key violation")
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestUpdatePost_InvalidatesPost(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	params := sqlc.UpdatePostByAuthorParams{
		Title:    pgtype.Text{String: "new", Valid: true},
		ID:       "p1",
		AuthorID: "u1",
	}
	updated := sqlc.Post{ID: "p1", Title: "new", Content: "C", Published: true, AuthorID: "u1", CreatedAt: baseTime}
	mockRepo.On("UpdatePost", mock.Anything, params).Return(updated, nil).Once()
	rdbMock.ExpectIncr(postGenKey).SetVal(1)
	rdbMock.ExpectDel(fmt.Sprintf(postKeyPattern, "p1")).SetVal(1)

	result, err := repo.UpdatePost(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, updated, result)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestDeletePost_InvalidatesPostAndFeedEntry(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	mockRepo.On("DeletePost", mock.Anything, "p1", "u1").Return(nil).Once()
	rdbMock.ExpectIncr(postGenKey).SetVal(1)
	rdbMock.ExpectDel(fmt.Sprintf(postKeyPattern, "p1")).SetVal(1)
	rdbMock.ExpectZRem(postFeedKey, "p1").SetVal(1)

	err := repo.DeletePost(context.Background(), "p1", "u1")

	require.NoError(t, err)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestDeletePost_FeedRemovalFailureDropsFeed(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	mockRepo.On("DeletePost", mock.Anything, "p1", "u1").Return(nil).Once()
	rdbMock.ExpectIncr(postGenKey).SetVal(1)
	rdbMock.ExpectDel(fmt.Sprintf(postKeyPattern, "p1")).SetVal(1)
	rdbMock.ExpectZRem(postFeedKey, "p1").SetErr(errors.New("READONLY"))
	rdbMock.ExpectDel(postFeedKey).SetVal(1)

	err := repo.DeletePost(context.Background(), "p1", "u1")

	require.NoError(t, err)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestDeletePost_NotFoundLeavesCache(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	mockRepo.On("DeletePost", mock.Anything, "p1", "u1").Return(apperr.ErrPostNotFound).Once()

	err := repo.DeletePost(context.Background(), "p1", "u1")

	assert.ErrorIs(t, err, apperr.ErrPostNotFound)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestGetPostAuthorID_BypassesCache(t *testing.T) {
	repo, rdbMock, mockRepo := newCachedRepo()

	mockRepo.On("GetPostAuthorID", mock.Anything, "p1").Return("u1", nil).Once()

	authorID, err := repo.GetPostAuthorID(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "u1", authorID)
	require.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestKeySlot(t *testing.T) {
	assert.EqualValues(t, 12182, keySlot("foo"))
	assert.EqualValues(t, 5061, keySlot("bar"))
	assert.Equal(t, keySlot("{user1000}.following"), keySlot("{user1000}.followers"))
	assert.Equal(t, keySlot(postFeedKey), keySlot(fmt.Sprintf(postKeyPattern, "any")))
	// An empty tag hashes the whole key.
	assert.NotEqual(t, keySlot("{}foo"), keySlot("foo"))
}
