package model

import "github.com/n1207n/blog-post-api/db/sqlc"

// PostDetailed is a post together with the public fields of its author.
type PostDetailed struct {
	Post   sqlc.Post     `json:"post"`
	Author sqlc.AuthUser `json:"author"`
}

type CreatePostDTO struct {
	Title    string
	Content  string
	AuthorID string
}

// UpdatePostDTO carries a partial update: nil fields keep their stored value.
type UpdatePostDTO struct {
	Title     *string
	Content   *string
	Published *bool
}
