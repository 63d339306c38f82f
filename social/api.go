package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-social-client/transport"
)

// Error codes the API uses when a mutation was already applied. The
// server answers these with a 500, which the reconciler must settle as
// success, not roll back.
const (
	codeAlreadyLiked     = "already liked"
	codeNotLiked         = "not liked"
	codeAlreadyFollowing = "already following"
	codeNotFollowing     = "not following"
)

// API exposes the content API's operations over the transport gateway.
// Reads decode into entity types; mutations return the raw transport result
// so the reconciler can merge server-confirmed fields.
type API struct {
	gateway *transport.Gateway
}

// NewAPI creates the API bindings.
func NewAPI(gateway *transport.Gateway) (*API, error) {
	if gateway == nil {
		return nil, errors.New("[social.NewAPI] gateway is required")
	}
	return &API{gateway: gateway}, nil
}

// loginResponse covers both shapes the API has answered login with: a bare
// token string and a {"token": ...} object.
type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token. The caller hands the
// token to the session manager; this binding does not touch session state.
func (a *API) Login(ctx context.Context, email, password string) (string, error) {
	result, err := a.gateway.Request(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", errors.Wrap(err, "[API.Login] request")
	}

	var body loginResponse
	if err := json.Unmarshal(result.Data, &body); err == nil && body.Token != "" {
		return body.Token, nil
	}
	var raw string
	if err := json.Unmarshal(result.Data, &raw); err == nil && strings.TrimSpace(raw) != "" {
		return raw, nil
	}
	return "", errors.New("[API.Login] no token in response")
}

// FetchPosts returns the viewer's feed.
func (a *API) FetchPosts(ctx context.Context) ([]Post, error) {
	return a.fetchPosts(ctx, "/posts")
}

// FetchUserPosts returns one author's posts.
func (a *API) FetchUserPosts(ctx context.Context, userID int64) ([]Post, error) {
	return a.fetchPosts(ctx, fmt.Sprintf("/posts?authorId=%d", userID))
}

func (a *API) fetchPosts(ctx context.Context, path string) ([]Post, error) {
	result, err := a.gateway.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[API.fetchPosts] request")
	}
	var posts []Post
	if err := json.Unmarshal(result.Data, &posts); err != nil {
		return nil, errors.Wrap(err, "[API.fetchPosts] decode")
	}
	return posts, nil
}

// CreatePost publishes a post and returns the server's copy.
func (a *API) CreatePost(ctx context.Context, title, content string) (*Post, error) {
	result, err := a.gateway.Request(ctx, http.MethodPost, "/posts", map[string]string{
		"title":   title,
		"content": content,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[API.CreatePost] request")
	}
	var post Post
	if err := json.Unmarshal(result.Data, &post); err != nil {
		return nil, errors.Wrap(err, "[API.CreatePost] decode")
	}
	return &post, nil
}

func (a *API) updatePost(ctx context.Context, postID int64, title, content string) (*transport.Result, error) {
	return a.gateway.Request(ctx, http.MethodPut, fmt.Sprintf("/posts/%d", postID), map[string]string{
		"title":   title,
		"content": content,
	})
}

// DeletePost removes a post.
func (a *API) DeletePost(ctx context.Context, postID int64) error {
	_, err := a.gateway.Request(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil)
	return errors.Wrap(err, "[API.DeletePost] request")
}

func (a *API) likePost(ctx context.Context, postID int64) (*transport.Result, error) {
	return a.gateway.Request(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), nil)
}

func (a *API) unlikePost(ctx context.Context, postID int64) (*transport.Result, error) {
	return a.gateway.Request(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d/unlike", postID), nil)
}

// FetchProfile returns one user's profile.
func (a *API) FetchProfile(ctx context.Context, userID int64) (*Profile, error) {
	result, err := a.gateway.Request(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[API.FetchProfile] request")
	}
	var profile Profile
	if err := json.Unmarshal(result.Data, &profile); err != nil {
		return nil, errors.Wrap(err, "[API.FetchProfile] decode")
	}
	return &profile, nil
}

// FetchFollowers returns the users following userID.
func (a *API) FetchFollowers(ctx context.Context, userID int64) ([]Profile, error) {
	return a.fetchUserList(ctx, fmt.Sprintf("/users/%d/followers", userID))
}

// FetchFollowing returns the users userID follows.
func (a *API) FetchFollowing(ctx context.Context, userID int64) ([]Profile, error) {
	return a.fetchUserList(ctx, fmt.Sprintf("/users/%d/following", userID))
}

func (a *API) fetchUserList(ctx context.Context, path string) ([]Profile, error) {
	result, err := a.gateway.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[API.fetchUserList] request")
	}
	var users []Profile
	if err := json.Unmarshal(result.Data, &users); err != nil {
		return nil, errors.Wrap(err, "[API.fetchUserList] decode")
	}
	return users, nil
}

// FollowStatus is the server's view of the edges between viewer and user.
type FollowStatus struct {
	IsFollowing  bool `json:"isFollowing"`
	FollowedBack bool `json:"followedBack"`
}

// FetchFollowStatus returns the viewer's relationship with userID.
func (a *API) FetchFollowStatus(ctx context.Context, userID int64) (*FollowStatus, error) {
	result, err := a.gateway.Request(ctx, http.MethodGet, fmt.Sprintf("/users/%d/follow-status", userID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[API.FetchFollowStatus] request")
	}
	var status FollowStatus
	if err := json.Unmarshal(result.Data, &status); err != nil {
		return nil, errors.Wrap(err, "[API.FetchFollowStatus] decode")
	}
	return &status, nil
}

func (a *API) followUser(ctx context.Context, userID int64) (*transport.Result, error) {
	return a.gateway.Request(ctx, http.MethodPost, fmt.Sprintf("/users/%d/follow", userID), nil)
}

func (a *API) unfollowUser(ctx context.Context, userID int64) (*transport.Result, error) {
	return a.gateway.Request(ctx, http.MethodPost, fmt.Sprintf("/users/%d/unfollow", userID), nil)
}

// FetchComments returns a post's comment thread.
func (a *API) FetchComments(ctx context.Context, postID int64) ([]Comment, error) {
	result, err := a.gateway.Request(ctx, http.MethodGet, fmt.Sprintf("/posts/%d/comments", postID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[API.FetchComments] request")
	}
	var comments []Comment
	if err := json.Unmarshal(result.Data, &comments); err != nil {
		return nil, errors.Wrap(err, "[API.FetchComments] decode")
	}
	return comments, nil
}

func (a *API) addComment(ctx context.Context, postID int64, content string) (*transport.Result, error) {
	return a.gateway.Request(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), map[string]string{
		"content": content,
	})
}

// isDuplicate reports whether err is the API's way of saying the action was
// already applied. The API answers these with a 500 plus a recognizable
// error code rather than a dedicated status.
func isDuplicate(err error, code string) bool {
	apiErr, ok := transport.AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Status == http.StatusInternalServerError && apiErr.Code == code
}
