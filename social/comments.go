package social

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-social-client/guard"
	"github.com/jrsteele09/go-social-client/reconcile"
	"github.com/jrsteele09/go-social-client/transport"
)

// CommentThread is the comments modal for one post. Adding a comment is
// optimistic: a placeholder entry appears immediately and is replaced by
// the server's copy on confirmation, or removed on rejection.
type CommentThread struct {
	api      *API
	sessions Sessions
	guard    *guard.Guard
	rec      *reconcile.Reconciler

	postID          int64
	thread          *reconcile.Cell[Thread]
	nextPlaceholder int64
}

// NewCommentThread creates the thread view for one post.
func NewCommentThread(api *API, sessions Sessions, g *guard.Guard, rec *reconcile.Reconciler, postID int64) (*CommentThread, error) {
	if api == nil || sessions == nil || g == nil || rec == nil {
		return nil, errors.New("[social.NewCommentThread] api, sessions, guard and reconciler are required")
	}
	return &CommentThread{
		api:             api,
		sessions:        sessions,
		guard:           g,
		rec:             rec,
		postID:          postID,
		nextPlaceholder: -1,
	}, nil
}

// Load fetches the thread. Gated like every protected view.
func (t *CommentThread) Load(ctx context.Context) error {
	if !t.guard.Enforce() {
		return ErrRedirected
	}

	comments, err := t.api.FetchComments(ctx, t.postID)
	if err != nil {
		return errors.Wrap(err, "[CommentThread.Load] FetchComments")
	}
	t.thread = reconcile.NewCell(Thread{PostID: t.postID, Comments: comments})
	return nil
}

// Comments returns the current thread snapshot, placeholders included.
func (t *CommentThread) Comments() ([]Comment, error) {
	if t.thread == nil {
		return nil, errors.Wrap(ErrNotLoaded, "[CommentThread.Comments]")
	}
	return t.thread.Get().Comments, nil
}

// Add appends the viewer's comment optimistically. Placeholder entries use
// negative ids so a rejected add can remove exactly the entry it created,
// even if other comments arrived in the meantime.
func (t *CommentThread) Add(ctx context.Context, content string) error {
	if t.thread == nil {
		return errors.Wrap(ErrNotLoaded, "[CommentThread.Add]")
	}
	identity := t.sessions.CurrentIdentity()
	if identity == nil {
		return ErrRedirected
	}

	placeholderID := t.nextPlaceholder
	t.nextPlaceholder--

	placeholder := Comment{
		ID:             placeholderID,
		PostID:         t.postID,
		AuthorID:       identity.SubjectID,
		AuthorNickname: identity.DisplayName,
		Content:        content,
	}

	return reconcile.Do(ctx, t.rec, t.thread, reconcile.Mutation[Thread]{
		EntityID: threadEntityID(t.postID),
		Apply: func(th Thread) Thread {
			th.Comments = append(append([]Comment{}, th.Comments...), placeholder)
			return th
		},
		Invert: func(th Thread) Thread {
			return removeComment(th, placeholderID)
		},
		Call: func(ctx context.Context) (*transport.Result, error) {
			return t.api.addComment(ctx, t.postID, content)
		},
		Merge: func(th Thread, result *transport.Result) Thread {
			var confirmed Comment
			if err := json.Unmarshal(result.Data, &confirmed); err != nil || confirmed.ID == 0 {
				return th
			}
			th = removeComment(th, placeholderID)
			th.Comments = append(th.Comments, confirmed)
			return th
		},
	})
}

func removeComment(th Thread, commentID int64) Thread {
	kept := make([]Comment, 0, len(th.Comments))
	for _, c := range th.Comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	th.Comments = kept
	return th
}
