// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Resource is a shared link with its nested comments and likes.
//
// WIRE SHAPE:
// The API serialises the owner under "user" (not "author"). Comments and
// likes are always present on GET /resources/{id}; list endpoints may leave
// them out, so both slices can be nil.
type Resource struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	Author      User      `json:"user"`
	Comments    []Comment `json:"comments,omitempty"`
	Likes       []Like    `json:"likes,omitempty"`
}

// Comment is append-only from the client's point of view.
// ID and CreatedAt are authoritative only when they come from the server.
type Comment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Like is one user's like on one resource. The server allows at most one
// Like per (user, resource).
type Like struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	User      User      `json:"user"`
}

// Provisional reports whether the like is a local optimistic stand-in.
// Stand-ins get negative IDs so they can never collide with server IDs.
func (l Like) Provisional() bool {
	return l.ID < 0
}

// LikedBy reports whether userID appears in the resource's like set.
// This is the derived likedByCurrentUser field; it is never stored.
func (r *Resource) LikedBy(userID int64) bool {
	if r == nil {
		return false
	}
	for _, l := range r.Likes {
		if l.User.ID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so views can hand out snapshots without
// sharing slices with their internal state.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	out := *r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Comments != nil {
		out.Comments = append([]Comment(nil), r.Comments...)
	}
	if r.Likes != nil {
		out.Likes = append([]Like(nil), r.Likes...)
	}
	return &out
}

// ResourceInput is the body of POST /resources.
type ResourceInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
}

// ParseTags splits a comma-separated tag field.
// Entries are trimmed and empty ones dropped; order is preserved.
//
//	ParseTags("a, b,,c ") → ["a", "b", "c"]
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
