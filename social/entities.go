// Package social binds the client to the content API: entity types, the
// HTTP operations, and the guarded views (feed, profile, comment thread)
// that hold per-view snapshots and route every mutating action through the
// reconciler.
package social

import "fmt"

// Post is a view's snapshot of one post. LikedByMe plus the like count is
// enough to compute the exact inverse of a like toggle, which rollback
// depends on.
type Post struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	AuthorID       int64  `json:"author_id"`
	AuthorNickname string `json:"author_nickname,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	Likes          int64  `json:"likes"`
	LikedByMe      bool   `json:"likedByMe"`
}

// Profile is a view's snapshot of one user. IsFollowedByMe is the viewer's
// edge toward the user; FollowsMeBack is the user's edge toward the viewer.
// The two are independent: unfollowing someone does not change whether they
// follow you.
type Profile struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Nick           string `json:"nick"`
	Email          string `json:"email,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	Followers      int64  `json:"followers"`
	Following      int64  `json:"following"`
	IsFollowedByMe bool   `json:"isFollowedByMe"`
	FollowsMeBack  bool   `json:"followsMeBack"`
}

// Comment is one entry of a post's comment thread.
type Comment struct {
	ID             int64  `json:"id"`
	PostID         int64  `json:"post_id"`
	AuthorID       int64  `json:"author_id"`
	AuthorNickname string `json:"author_nickname,omitempty"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Thread is a view's snapshot of one post's comment list.
type Thread struct {
	PostID   int64
	Comments []Comment
}

// Entity id keys for the reconciler's per-entity serialization. Views that
// mutate the same logical entity must derive the same key.
func postEntityID(postID int64) string   { return fmt.Sprintf("post/%d", postID) }
func userEntityID(userID int64) string   { return fmt.Sprintf("user/%d", userID) }
func threadEntityID(postID int64) string { return fmt.Sprintf("post/%d/comments", postID) }
