package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-social-client/reconcile"
	"github.com/jrsteele09/go-social-client/transport"
)

// post is the snapshot type the tests reconcile against: a count, the
// viewer flag that makes the inverse exact, and an unrelated field.
type post struct {
	ID    int64
	Likes int64
	Liked bool
	Title string
}

func likeMutation(entityID string, call func(ctx context.Context) (*transport.Result, error)) reconcile.Mutation[post] {
	return reconcile.Mutation[post]{
		EntityID: entityID,
		Apply: func(p post) post {
			p.Likes++
			p.Liked = true
			return p
		},
		Invert: func(p post) post {
			p.Likes--
			p.Liked = false
			return p
		},
		Call: call,
	}
}

func okResult(body string) (*transport.Result, error) {
	return &transport.Result{Status: http.StatusOK, Data: json.RawMessage(body)}, nil
}

func TestDo_OptimisticPatch(t *testing.T) {
	t.Run("patch is visible before the server settles", func(t *testing.T) {
		cell := reconcile.NewCell(post{ID: 42, Likes: 3})
		rec := reconcile.New()

		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- reconcile.Do(context.Background(), rec, cell, likeMutation("post/42",
				func(ctx context.Context) (*transport.Result, error) {
					<-release
					return okResult(`{}`)
				}))
		}()

		require.Eventually(t, func() bool {
			snapshot := cell.Get()
			return snapshot.Likes == 4 && snapshot.Liked
		}, time.Second, time.Millisecond)

		close(release)
		require.NoError(t, <-done)
	})
}

func TestDo_Settlement(t *testing.T) {
	t.Run("server-confirmed count overrides the optimistic guess", func(t *testing.T) {
		cell := reconcile.NewCell(post{ID: 42, Likes: 5})
		rec := reconcile.New()

		m := likeMutation("post/42", func(ctx context.Context) (*transport.Result, error) {
			// A concurrent external like raced this one: the guess was 6
			// but the server counted 8.
			return okResult(`{"likes": 8}`)
		})
		m.Merge = func(p post, result *transport.Result) post {
			var body struct {
				Likes int64 `json:"likes"`
			}
			require.NoError(t, json.Unmarshal(result.Data, &body))
			p.Likes = body.Likes
			return p
		}

		require.NoError(t, reconcile.Do(context.Background(), rec, cell, m))
		require.Equal(t, post{ID: 42, Likes: 8, Liked: true}, cell.Get())
	})

	t.Run("rejected mutation restores the exact prior snapshot", func(t *testing.T) {
		before := post{ID: 42, Likes: 3, Liked: false, Title: "hello"}
		cell := reconcile.NewCell(before)
		rec := reconcile.New()

		err := reconcile.Do(context.Background(), rec, cell, likeMutation("post/42",
			func(ctx context.Context) (*transport.Result, error) {
				return nil, &transport.APIError{Status: http.StatusBadRequest}
			}))

		var rejected *reconcile.RejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, before, cell.Get())
	})

	t.Run("rollback preserves an unrelated concurrent update", func(t *testing.T) {
		cell := reconcile.NewCell(post{ID: 42, Likes: 3, Title: "old"})
		rec := reconcile.New()

		inFlight := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- reconcile.Do(context.Background(), rec, cell, likeMutation("post/42",
				func(ctx context.Context) (*transport.Result, error) {
					close(inFlight)
					<-release
					return nil, &transport.APIError{Status: http.StatusBadRequest}
				}))
		}()

		<-inFlight
		// An unrelated field changes while the call is pending. Rollback
		// must invert only its own delta, not restore a stale copy.
		cell.Update(func(p post) post {
			p.Title = "new"
			return p
		})
		close(release)

		require.Error(t, <-done)
		require.Equal(t, post{ID: 42, Likes: 3, Liked: false, Title: "new"}, cell.Get())
	})

	t.Run("duplicate action settles as success without merge", func(t *testing.T) {
		cell := reconcile.NewCell(post{ID: 42, Likes: 3})
		rec := reconcile.New()

		duplicateErr := &transport.APIError{Status: http.StatusInternalServerError, Code: "already liked"}
		m := likeMutation("post/42", func(ctx context.Context) (*transport.Result, error) {
			return nil, duplicateErr
		})
		m.Duplicate = func(err error) bool {
			apiErr, ok := transport.AsAPIError(err)
			return ok && apiErr.Code == "already liked"
		}
		m.Merge = func(p post, result *transport.Result) post {
			t.Fatal("merge must not run for a duplicate settlement")
			return p
		}

		require.NoError(t, reconcile.Do(context.Background(), rec, cell, m))
		require.Equal(t, post{ID: 42, Likes: 4, Liked: true}, cell.Get())
	})
}

func TestDo_ErrorClassification(t *testing.T) {
	cell := reconcile.NewCell(post{ID: 1})
	rec := reconcile.New()

	t.Run("network failures pass through for retry messaging", func(t *testing.T) {
		netErr := &transport.NetworkError{Op: "POST /posts/1/like", Err: errors.New("connection refused")}
		err := reconcile.Do(context.Background(), rec, cell, likeMutation("post/1",
			func(ctx context.Context) (*transport.Result, error) { return nil, netErr }))

		var got *transport.NetworkError
		require.ErrorAs(t, err, &got)
	})

	t.Run("unauthorized passes through untouched", func(t *testing.T) {
		err := reconcile.Do(context.Background(), rec, cell, likeMutation("post/1",
			func(ctx context.Context) (*transport.Result, error) { return nil, transport.ErrUnauthorized }))
		require.ErrorIs(t, err, transport.ErrUnauthorized)
	})

	t.Run("other server refusals become RejectedError", func(t *testing.T) {
		err := reconcile.Do(context.Background(), rec, cell, likeMutation("post/1",
			func(ctx context.Context) (*transport.Result, error) {
				return nil, &transport.APIError{Status: http.StatusForbidden, Code: "forbidden"}
			}))

		var rejected *reconcile.RejectedError
		require.ErrorAs(t, err, &rejected)
		require.ErrorIs(t, err, rejected.Cause)
	})
}

func TestDo_PerEntitySerialization(t *testing.T) {
	t.Run("second mutation waits for the first to settle", func(t *testing.T) {
		cell := reconcile.NewCell(post{ID: 42, Likes: 3})
		rec := reconcile.New()

		firstInFlight := make(chan struct{})
		releaseFirst := make(chan struct{})
		firstDone := make(chan error, 1)
		go func() {
			firstDone <- reconcile.Do(context.Background(), rec, cell, likeMutation("post/42",
				func(ctx context.Context) (*transport.Result, error) {
					close(firstInFlight)
					<-releaseFirst
					return okResult(`{}`)
				}))
		}()
		<-firstInFlight

		var mu sync.Mutex
		secondApplied := false
		secondDone := make(chan error, 1)
		go func() {
			secondDone <- reconcile.Do(context.Background(), rec, cell, reconcile.Mutation[post]{
				EntityID: "post/42",
				Apply: func(p post) post {
					mu.Lock()
					secondApplied = true
					mu.Unlock()
					p.Likes--
					p.Liked = false
					return p
				},
				Invert: func(p post) post {
					p.Likes++
					p.Liked = true
					return p
				},
				Call: func(ctx context.Context) (*transport.Result, error) {
					return okResult(`{}`)
				},
			})
		}()

		// The second must not patch against a snapshot the first could
		// still roll back.
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		require.False(t, secondApplied)
		mu.Unlock()

		close(releaseFirst)
		require.NoError(t, <-firstDone)
		require.NoError(t, <-secondDone)

		// Like then unlike nets out to the starting state.
		require.Equal(t, post{ID: 42, Likes: 3, Liked: false}, cell.Get())
	})

	t.Run("different entities proceed independently", func(t *testing.T) {
		cellA := reconcile.NewCell(post{ID: 1})
		cellB := reconcile.NewCell(post{ID: 2})
		rec := reconcile.New()

		blockA := make(chan struct{})
		doneA := make(chan error, 1)
		go func() {
			doneA <- reconcile.Do(context.Background(), rec, cellA, likeMutation("post/1",
				func(ctx context.Context) (*transport.Result, error) {
					<-blockA
					return okResult(`{}`)
				}))
		}()

		err := reconcile.Do(context.Background(), rec, cellB, likeMutation("post/2",
			func(ctx context.Context) (*transport.Result, error) { return okResult(`{}`) }))
		require.NoError(t, err)

		close(blockA)
		require.NoError(t, <-doneA)
	})

	t.Run("cancelled waiter leaves the snapshot untouched", func(t *testing.T) {
		cell := reconcile.NewCell(post{ID: 42, Likes: 3})
		rec := reconcile.New()

		firstInFlight := make(chan struct{})
		releaseFirst := make(chan struct{})
		firstDone := make(chan error, 1)
		go func() {
			firstDone <- reconcile.Do(context.Background(), rec, cell, likeMutation("post/42",
				func(ctx context.Context) (*transport.Result, error) {
					close(firstInFlight)
					<-releaseFirst
					return okResult(`{}`)
				}))
		}()
		<-firstInFlight

		ctx, cancel := context.WithCancel(context.Background())
		secondDone := make(chan error, 1)
		go func() {
			secondDone <- reconcile.Do(ctx, rec, cell, likeMutation("post/42",
				func(ctx context.Context) (*transport.Result, error) {
					t.Error("cancelled mutation must not reach the server")
					return okResult(`{}`)
				}))
		}()

		cancel()
		require.ErrorIs(t, <-secondDone, context.Canceled)

		close(releaseFirst)
		require.NoError(t, <-firstDone)
		require.Equal(t, post{ID: 42, Likes: 4, Liked: true}, cell.Get())
	})
}

func TestDo_Validation(t *testing.T) {
	rec := reconcile.New()
	cell := reconcile.NewCell(post{})
	valid := likeMutation("post/1", func(ctx context.Context) (*transport.Result, error) {
		return okResult(`{}`)
	})

	t.Run("nil reconciler", func(t *testing.T) {
		require.Error(t, reconcile.Do[post](context.Background(), nil, cell, valid))
	})

	t.Run("nil cell", func(t *testing.T) {
		require.Error(t, reconcile.Do[post](context.Background(), rec, nil, valid))
	})

	t.Run("missing entity id", func(t *testing.T) {
		m := valid
		m.EntityID = ""
		require.Error(t, reconcile.Do(context.Background(), rec, cell, m))
	})

	t.Run("missing patch functions", func(t *testing.T) {
		m := valid
		m.Invert = nil
		require.Error(t, reconcile.Do(context.Background(), rec, cell, m))
	})
}
