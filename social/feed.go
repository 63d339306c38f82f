package social

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-social-client/guard"
	"github.com/jrsteele09/go-social-client/reconcile"
	"github.com/jrsteele09/go-social-client/session"
	"github.com/jrsteele09/go-social-client/transport"
)

// ErrRedirected is returned by a view operation that was stopped by the
// route guard. The redirect has already been issued; the view must not
// load data.
var ErrRedirected = errors.New("redirected to login")

// Sessions is the slice of the session manager the views consume. Author
// checks always go through it, never through an id baked into a previously
// fetched page, because identity can change without the view reloading.
type Sessions interface {
	CurrentIdentity() *session.Identity
}

// Feed is the feed view: its own snapshots of the posts on screen, one
// cell per post. Every mutating action goes through the reconciler.
type Feed struct {
	api      *API
	sessions Sessions
	guard    *guard.Guard
	rec      *reconcile.Reconciler

	mu    sync.Mutex
	cells map[int64]*reconcile.Cell[Post]
	order []int64
}

// NewFeed creates the feed view.
func NewFeed(api *API, sessions Sessions, g *guard.Guard, rec *reconcile.Reconciler) (*Feed, error) {
	if api == nil || sessions == nil || g == nil || rec == nil {
		return nil, errors.New("[social.NewFeed] api, sessions, guard and reconciler are required")
	}
	return &Feed{
		api:      api,
		sessions: sessions,
		guard:    g,
		rec:      rec,
		cells:    map[int64]*reconcile.Cell[Post]{},
	}, nil
}

// Load fetches the feed. Gated: an unauthenticated caller is redirected
// and no data is loaded.
func (f *Feed) Load(ctx context.Context) error {
	if !f.guard.Enforce() {
		return ErrRedirected
	}

	posts, err := f.api.FetchPosts(ctx)
	if err != nil {
		return errors.Wrap(err, "[Feed.Load] FetchPosts")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells = make(map[int64]*reconcile.Cell[Post], len(posts))
	f.order = f.order[:0]
	for _, post := range posts {
		f.cells[post.ID] = reconcile.NewCell(post)
		f.order = append(f.order, post.ID)
	}
	return nil
}

// Posts returns the current snapshots in feed order.
func (f *Feed) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := make([]Post, 0, len(f.order))
	for _, id := range f.order {
		if cell, ok := f.cells[id]; ok {
			posts = append(posts, cell.Get())
		}
	}
	return posts
}

// Post returns the current snapshot of one post.
func (f *Feed) Post(postID int64) (Post, error) {
	cell, err := f.cell(postID)
	if err != nil {
		return Post{}, err
	}
	return cell.Get(), nil
}

// ToggleLike flips the viewer's like on a post. The direction is decided
// when the optimistic patch runs — after any in-flight mutation for the
// same post has settled — so a rapid double toggle nets out correctly.
func (f *Feed) ToggleLike(ctx context.Context, postID int64) error {
	cell, err := f.cell(postID)
	if err != nil {
		return err
	}

	var liked bool
	return reconcile.Do(ctx, f.rec, cell, reconcile.Mutation[Post]{
		EntityID: postEntityID(postID),
		Apply: func(p Post) Post {
			liked = !p.LikedByMe
			if liked {
				p.Likes++
			} else {
				p.Likes--
			}
			p.LikedByMe = liked
			return p
		},
		Invert: func(p Post) Post {
			if liked {
				p.Likes--
			} else {
				p.Likes++
			}
			p.LikedByMe = !liked
			return p
		},
		Call: func(ctx context.Context) (*transport.Result, error) {
			if liked {
				return f.api.likePost(ctx, postID)
			}
			return f.api.unlikePost(ctx, postID)
		},
		Merge: mergeLikeCount,
		Duplicate: func(err error) bool {
			if liked {
				return isDuplicate(err, codeAlreadyLiked)
			}
			return isDuplicate(err, codeNotLiked)
		},
	})
}

// Edit rewrites a post's title and content in place. Author-only: the
// session identity is compared against the snapshot's author id at call
// time.
func (f *Feed) Edit(ctx context.Context, postID int64, title, content string) error {
	cell, err := f.cell(postID)
	if err != nil {
		return err
	}
	if err := f.requireAuthor(cell.Get()); err != nil {
		return err
	}

	var prevTitle, prevContent string
	return reconcile.Do(ctx, f.rec, cell, reconcile.Mutation[Post]{
		EntityID: postEntityID(postID),
		Apply: func(p Post) Post {
			prevTitle, prevContent = p.Title, p.Content
			p.Title, p.Content = title, content
			return p
		},
		Invert: func(p Post) Post {
			p.Title, p.Content = prevTitle, prevContent
			return p
		},
		Call: func(ctx context.Context) (*transport.Result, error) {
			return f.api.updatePost(ctx, postID, title, content)
		},
	})
}

// Delete removes a post. Author-only. Removal is not optimistic: the post
// leaves the view only after the server confirms.
func (f *Feed) Delete(ctx context.Context, postID int64) error {
	cell, err := f.cell(postID)
	if err != nil {
		return err
	}
	if err := f.requireAuthor(cell.Get()); err != nil {
		return err
	}

	if err := f.api.DeletePost(ctx, postID); err != nil {
		return errors.Wrap(err, "[Feed.Delete] DeletePost")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cells, postID)
	for i, id := range f.order {
		if id == postID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// Create publishes a post and prepends the server's copy to the view.
func (f *Feed) Create(ctx context.Context, title, content string) (Post, error) {
	if f.sessions.CurrentIdentity() == nil {
		return Post{}, ErrRedirected
	}

	post, err := f.api.CreatePost(ctx, title, content)
	if err != nil {
		return Post{}, errors.Wrap(err, "[Feed.Create] CreatePost")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[post.ID] = reconcile.NewCell(*post)
	f.order = append([]int64{post.ID}, f.order...)
	return *post, nil
}

func (f *Feed) cell(postID int64) (*reconcile.Cell[Post], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cell, ok := f.cells[postID]
	if !ok {
		return nil, errors.Wrapf(ErrPostNotFound, "[Feed] post %d", postID)
	}
	return cell, nil
}

func (f *Feed) requireAuthor(post Post) error {
	identity := f.sessions.CurrentIdentity()
	if identity == nil {
		return ErrRedirected
	}
	if identity.SubjectID != post.AuthorID {
		return errors.Wrapf(ErrNotAuthor, "[Feed] post %d", post.ID)
	}
	return nil
}

// likeCountBody is the server's response to a like/unlike mutation: the
// authoritative like count, which overrides the optimistic guess.
type likeCountBody struct {
	Likes *int64 `json:"likes"`
}

func mergeLikeCount(p Post, result *transport.Result) Post {
	var body likeCountBody
	if err := json.Unmarshal(result.Data, &body); err != nil || body.Likes == nil {
		return p
	}
	p.Likes = *body.Likes
	return p
}
