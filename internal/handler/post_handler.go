package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/apperr"
	"github.com/n1207n/blog-post-api/internal/auth"
	"github.com/n1207n/blog-post-api/internal/model"
	"github.com/n1207n/blog-post-api/internal/service"
)

type PostHandler struct {
	postService service.PostService
	log         *slog.Logger
}

func NewPostHandler(postService service.PostService, log *slog.Logger) *PostHandler {
	return &PostHandler{postService: postService, log: log}
}

// CreatePostRequest only checks that fields are present and not empty, zero
// or false; the types are checked afterwards. There is no published field:
// new posts are always published.
type CreatePostRequest struct {
	Title    any `json:"title" binding:"required"`
	Content  any `json:"content" binding:"required"`
	AuthorID any `json:"authorId" binding:"required"`
}

// UpdatePostRequest fields left out of the body keep their stored value.
type UpdatePostRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	Published     *bool   `json:"published"`
	CurrentUserID any     `json:"currentUserId"`
}

type DeletePostRequest struct {
	CurrentUserID any `json:"currentUserId"`
}

type AuthorResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type PostResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Published bool            `json:"published"`
	AuthorID  string          `json:"authorId"`
	CreatedAt time.Time       `json:"createdAt"`
	Author    *AuthorResponse `json:"author,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func newPostResponse(post sqlc.Post) PostResponse {
	return PostResponse{
		ID:        post.ID,
		Title:     post.Title,
		Content:   post.Content,
		Published: post.Published,
		AuthorID:  post.AuthorID,
		CreatedAt: post.CreatedAt,
	}
}

func newDetailedPostResponse(post model.PostDetailed) PostResponse {
	res := newPostResponse(post.Post)
	res.Author = &AuthorResponse{ID: post.Author.ID, Email: post.Author.Email}
	return res
}

// Root is the liveness check. It never touches the database.
func Root(c *gin.Context) {
	c.String(http.StatusOK, "Blog API is running")
}

func (h *PostHandler) ListPosts(c *gin.Context) {
	posts, err := h.postService.ListPosts(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to fetch posts")
		return
	}

	res := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		res = append(res, newDetailedPostResponse(post))
	}

	c.JSON(http.StatusOK, res)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postService.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch post")
		return
	}

	c.JSON(http.StatusOK, newDetailedPostResponse(post))
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	// Prefill so a token holder may omit authorId from the body.
	if claims, ok := auth.FromContext(c.Request.Context()); ok {
		req.AuthorID = claims.Subject
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logBindError(err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Title, content, and author ID are required"})
		return
	}
	if claims, ok := auth.FromContext(c.Request.Context()); ok {
		req.AuthorID = claims.Subject
	}

	var dto model.CreatePostDTO
	var err error
	if dto.Title, err = stringField("title", req.Title); err == nil {
		if dto.Content, err = stringField("content", req.Content); err == nil {
			dto.AuthorID, err = stringField("authorId", req.AuthorID)
		}
	}
	if err != nil {
		h.respondError(c, err, "Failed to create post")
		return
	}

	post, err := h.postService.CreatePost(c.Request.Context(), dto)
	if err != nil {
		h.respondError(c, err, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, newPostResponse(post))
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondError(c, err, "Failed to update post")
		return
	}

	currentUserID, ok := callerID(c, req.CurrentUserID)
	if !ok {
		h.rejectNonStringCaller(c, "Failed to update post")
		return
	}

	dto := model.UpdatePostDTO{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	}
	post, err := h.postService.UpdatePost(c.Request.Context(), c.Param("id"), currentUserID, dto)
	if err != nil {
		h.respondError(c, err, "Failed to update post")
		return
	}

	c.JSON(http.StatusOK, newPostResponse(post))
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	var req DeletePostRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondError(c, err, "Failed to delete post")
		return
	}

	currentUserID, ok := callerID(c, req.CurrentUserID)
	if !ok {
		h.rejectNonStringCaller(c, "Failed to delete post")
		return
	}

	if err := h.postService.DeletePost(c.Request.Context(), c.Param("id"), currentUserID); err != nil {
		h.respondError(c, err, "Failed to delete post")
		return
	}

	c.Status(http.StatusNoContent)
}

// respondError maps service errors to their status codes. Anything that is
// not a known sentinel is reported as a 500 carrying the error text.
func (h *PostHandler) respondError(c *gin.Context, err error, failure string) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Title, content, and author ID are required"})
	case errors.Is(err, apperr.ErrAuthenticationRequired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
	case errors.Is(err, apperr.ErrNotAuthor):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Unauthorized: You are not the author of this post"})
	case errors.Is(err, apperr.ErrPostNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Post not found"})
	default:
		h.log.Error(failure, slog.String("path", c.Request.URL.Path), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: failure, Details: err.Error()})
	}
}

func (h *PostHandler) logBindError(err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fieldErr := range validationErrs {
			h.log.Debug("Invalid create post payload",
				slog.String("field", fieldErr.Field()),
				slog.String("rule", fieldErr.Tag()))
		}
		return
	}
	h.log.Debug("Undecodable create post payload", slog.String("error", err.Error()))
}

// bindOptionalJSON decodes the body, treating an empty body as an empty object.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// rejectNonStringCaller answers a mutation whose currentUserId is set but is
// not a string. No author id can equal it, so the post is looked up only to
// report a missing post before the ownership failure.
func (h *PostHandler) rejectNonStringCaller(c *gin.Context, failure string) {
	if _, err := h.postService.GetPost(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, failure)
		return
	}
	h.respondError(c, apperr.ErrNotAuthor, failure)
}

// callerID prefers the verified token subject over the identity in the body.
// Empty, zero, false and null body values mean no caller. ok is false when
// the body value is set but is not a string.
func callerID(c *gin.Context, fromBody any) (id string, ok bool) {
	if claims, found := auth.FromContext(c.Request.Context()); found {
		return claims.Subject, true
	}
	switch v := fromBody.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case bool:
		return "", !v
	case float64:
		return "", v == 0
	default:
		return "", false
	}
}

// stringField returns v as a string, failing the way the column type would.
func stringField(name string, v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("invalid value for %s: expected a string, got %s", name, jsonKind(v))
}

func jsonKind(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
