package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/metrics"
	"github.com/n1207n/blog-post-api/internal/model"
)

// All keys share the {posts} hash tag so MGET and scripts stay on one
// cluster slot.
const (
	postFeedKey    = "{posts}:feed"
	postKeyPattern = "{posts}:post:%s"
	postGenKey     = "{posts}:gen"
	cacheTTL       = 1 * time.Hour
)

// storeFeedScript replaces the feed and its member posts, unless the
// generation moved since the DB was read.
// KEYS: gen, feed, post keys. ARGV: gen, ttl, then json, score, id per post.
const storeFeedScript = `
if (redis.call('GET', KEYS[1]) or '0') ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[2])
redis.call('DEL', KEYS[2])
for i = 3, #KEYS do
	local a = 3 + (i - 3) * 3
	redis.call('SET', KEYS[i], ARGV[a], 'EX', ttl)
	redis.call('ZADD', KEYS[2], ARGV[a + 1], ARGV[a + 2])
end
redis.call('EXPIRE', KEYS[2], ttl)
return 1
`

// storePostScript caches one post under the same generation check.
// KEYS: gen, post key. ARGV: gen, ttl, json.
const storePostScript = `
if (redis.call('GET', KEYS[1]) or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[3], 'EX', tonumber(ARGV[2]))
return 1
`

// CachedPostRepository is a cache decorator for PostRepository.
//
// Every mutation bumps a generation counter before dropping keys. Readers
// note the generation before going to the DB and only write back when it
// is unchanged, so a snapshot taken before a mutation never lands in the
// cache after it. The feed is only written from a full DB listing.
type CachedPostRepository struct {
	nextRepo PostRepository
	rdb      redis.Cmdable
	log      *slog.Logger
}

// NewCachedPostRepository creates a new instance of CachedPostRepository
func NewCachedPostRepository(next PostRepository, rdb redis.Cmdable, log *slog.Logger) PostRepository {
	return &CachedPostRepository{
		nextRepo: next,
		rdb:      rdb,
		log:      log,
	}
}

// ListPosts reads the feed from cache first then DB
func (r *CachedPostRepository) ListPosts(ctx context.Context) ([]model.PostDetailed, error) {
	countSlotRead(postFeedKey)
	postIDs, err := r.rdb.ZRevRange(ctx, postFeedKey, 0, -1).Result()

	if err == nil && len(postIDs) > 0 {
		posts, missedIDs := r.getPostsFromCache(ctx, postIDs)
		if len(missedIDs) == 0 {
			r.log.Debug("full cache hit for post feed", slog.Int("count", len(posts)))
			metrics.PostCacheHits.Inc()
			return posts, nil
		}
		// Partial cache hit, a.k.a shard join
		r.log.Debug("partial cache hit for post feed, fetching full list from DB",
			slog.Int("missed", len(missedIDs)))
		metrics.PostCacheShardJoins.Inc()
	} else {
		if err != nil && !errors.Is(err, redis.Nil) {
			r.log.Warn("redis error on getting post feed", slog.String("error", err.Error()))
		}
		r.log.Debug("full cache miss for post feed, fetching from db")
		metrics.PostCacheMisses.Inc()
	}

	gen, genErr := r.generation(ctx)
	posts, err := r.nextRepo.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	if genErr == nil && len(posts) > 0 {
		if err := r.cachePostList(ctx, gen, posts); err != nil {
			r.log.Warn("failed to cache post feed", slog.String("error", err.Error()))
		}
	}

	return posts, nil
}

// GetPost reads a post from cache first then DB
func (r *CachedPostRepository) GetPost(ctx context.Context, id string) (model.PostDetailed, error) {
	postKey := fmt.Sprintf(postKeyPattern, id)
	countSlotRead(postKey)
	val, err := r.rdb.Get(ctx, postKey).Result()

	if err == nil {
		var post model.PostDetailed
		if err := json.Unmarshal([]byte(val), &post); err == nil {
			r.log.Debug("cache hit for post", slog.String("id", id))
			metrics.PostCacheHits.Inc()
			return post, nil
		}
		r.log.Warn("failed to unmarshal cached post", slog.String("id", id), slog.String("error", err.Error()))
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn("redis error on getting post", slog.String("id", id), slog.String("error", err.Error()))
	}

	r.log.Debug("cache miss for post, fetching from db", slog.String("id", id))
	metrics.PostCacheMisses.Inc()
	gen, genErr := r.generation(ctx)
	post, err := r.nextRepo.GetPost(ctx, id)
	if err != nil {
		return model.PostDetailed{}, err
	}

	if genErr == nil {
		if err := r.cachePost(ctx, gen, post); err != nil {
			r.log.Warn("failed to cache post after db fetch", slog.String("id", id), slog.String("error", err.Error()))
		}
	}

	return post, nil
}

// CreatePost writes through to DB and drops the feed, which no longer lists every post.
func (r *CachedPostRepository) CreatePost(ctx context.Context, arg sqlc.CreatePostParams) (sqlc.Post, error) {
	post, err := r.nextRepo.CreatePost(ctx, arg)
	if err != nil {
		return sqlc.Post{}, err
	}

	r.invalidate(ctx, postFeedKey)
	return post, nil
}

// GetPostAuthorID always asks the DB: authorization must not act on stale data.
func (r *CachedPostRepository) GetPostAuthorID(ctx context.Context, id string) (string, error) {
	return r.nextRepo.GetPostAuthorID(ctx, id)
}

// UpdatePost drops the cached copy of the post; its feed position never changes.
func (r *CachedPostRepository) UpdatePost(ctx context.Context, arg sqlc.UpdatePostByAuthorParams) (sqlc.Post, error) {
	post, err := r.nextRepo.UpdatePost(ctx, arg)
	if err != nil {
		return sqlc.Post{}, err
	}

	r.invalidate(ctx, fmt.Sprintf(postKeyPattern, post.ID))
	return post, nil
}

// DeletePost removes the post from both the post key and the feed.
func (r *CachedPostRepository) DeletePost(ctx context.Context, id, authorID string) error {
	if err := r.nextRepo.DeletePost(ctx, id, authorID); err != nil {
		return err
	}

	r.invalidate(ctx, fmt.Sprintf(postKeyPattern, id))
	if err := r.rdb.ZRem(ctx, postFeedKey, id).Err(); err != nil {
		r.log.Warn("failed to remove post from feed", slog.String("id", id), slog.String("error", err.Error()))
		// Rebuild the feed from the DB on the next listing.
		if err := r.rdb.Del(ctx, postFeedKey).Err(); err != nil {
			r.log.Warn("failed to drop post feed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (r *CachedPostRepository) getPostsFromCache(ctx context.Context, postIDs []string) ([]model.PostDetailed, []string) {
	postKeys := make([]string, len(postIDs))
	for i, id := range postIDs {
		postKeys[i] = fmt.Sprintf(postKeyPattern, id)
	}

	vals, err := r.rdb.MGet(ctx, postKeys...).Result()
	if err != nil {
		r.log.Warn("MGet failed for post keys", slog.Int("count", len(postKeys)), slog.String("error", err.Error()))
		return nil, postIDs
	}

	posts := make([]model.PostDetailed, 0, len(vals))
	var missedIDs []string

	for i, val := range vals {
		str, ok := val.(string)
		if !ok {
			missedIDs = append(missedIDs, postIDs[i])
			continue
		}
		var post model.PostDetailed
		if err := json.Unmarshal([]byte(str), &post); err != nil {
			r.log.Warn("failed to unmarshal cached post", slog.String("key", postKeys[i]), slog.String("error", err.Error()))
			missedIDs = append(missedIDs, postIDs[i])
			continue
		}
		posts = append(posts, post)
	}

	return posts, missedIDs
}

// generation returns the current cache generation; a missing key is "0".
func (r *CachedPostRepository) generation(ctx context.Context) (string, error) {
	gen, err := r.rdb.Get(ctx, postGenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		r.log.Warn("failed to read cache generation, skipping write back", slog.String("error", err.Error()))
		return "", err
	}
	return gen, nil
}

// cachePost caches a single post if no mutation happened since gen was read
func (r *CachedPostRepository) cachePost(ctx context.Context, gen string, post model.PostDetailed) error {
	postKey := fmt.Sprintf(postKeyPattern, post.Post.ID)
	postJSON, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post %s: %w", post.Post.ID, err)
	}

	stored, err := r.rdb.Eval(ctx, storePostScript, []string{postGenKey, postKey},
		gen, ttlSeconds(), string(postJSON)).Int()
	if err != nil {
		return fmt.Errorf("failed to SET post %s: %w", post.Post.ID, err)
	}
	if stored == 0 {
		r.log.Debug("post changed during db fetch, not caching", slog.String("id", post.Post.ID))
	}
	return nil
}

// cachePostList replaces the feed with the given posts, newest first by score,
// if no mutation happened since gen was read
func (r *CachedPostRepository) cachePostList(ctx context.Context, gen string, posts []model.PostDetailed) error {
	keys := make([]string, 0, len(posts)+2)
	keys = append(keys, postGenKey, postFeedKey)
	args := make([]interface{}, 0, len(posts)*3+2)
	args = append(args, gen, ttlSeconds())

	for _, p := range posts {
		postJSON, err := json.Marshal(p)
		if err != nil {
			// A feed missing a post would be served as complete.
			return fmt.Errorf("failed to marshal post %s: %w", p.Post.ID, err)
		}
		keys = append(keys, fmt.Sprintf(postKeyPattern, p.Post.ID))
		args = append(args, string(postJSON), feedScore(p.Post.CreatedAt), p.Post.ID)
	}

	stored, err := r.rdb.Eval(ctx, storeFeedScript, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("script execution failed for post feed: %w", err)
	}
	if stored == 0 {
		r.log.Debug("posts changed during db listing, not caching feed")
	}
	return nil
}

// invalidate bumps the generation first so in-flight readers cannot write
// their older snapshot back after the keys are gone.
func (r *CachedPostRepository) invalidate(ctx context.Context, keys ...string) {
	metrics.PostCacheInvalidations.Inc()
	if err := r.rdb.Incr(ctx, postGenKey).Err(); err != nil {
		r.log.Warn("failed to bump cache generation", slog.String("error", err.Error()))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.log.Warn("failed to invalidate cache keys", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

func ttlSeconds() string {
	return strconv.Itoa(int(cacheTTL / time.Second))
}

// feedScore uses microseconds, the precision Postgres stores, which still
// fits a float64 mantissa exactly.
func feedScore(createdAt time.Time) string {
	return strconv.FormatFloat(float64(createdAt.UnixMicro()), 'f', -1, 64)
}

func countSlotRead(key string) {
	metrics.RedisSlotReads.WithLabelValues(strconv.Itoa(int(keySlot(key)))).Inc()
}
