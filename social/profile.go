package social

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-social-client/guard"
	"github.com/jrsteele09/go-social-client/reconcile"
	"github.com/jrsteele09/go-social-client/transport"
)

// ProfileView is the profile screen for one user: the profile snapshot,
// that user's posts, and the follower/following lists. It holds its own
// copies; the feed showing the same posts holds separate ones.
type ProfileView struct {
	api      *API
	sessions Sessions
	guard    *guard.Guard
	rec      *reconcile.Reconciler

	userID  int64
	profile *reconcile.Cell[Profile]
	posts   []Post
}

// NewProfileView creates the view for userID's profile.
func NewProfileView(api *API, sessions Sessions, g *guard.Guard, rec *reconcile.Reconciler, userID int64) (*ProfileView, error) {
	if api == nil || sessions == nil || g == nil || rec == nil {
		return nil, errors.New("[social.NewProfileView] api, sessions, guard and reconciler are required")
	}
	return &ProfileView{
		api:      api,
		sessions: sessions,
		guard:    g,
		rec:      rec,
		userID:   userID,
	}, nil
}

// IsOwn reports whether this profile belongs to the session's identity.
// Resolved against the session at call time so a logout/login without a
// reload flips the answer.
func (v *ProfileView) IsOwn() bool {
	identity := v.sessions.CurrentIdentity()
	return identity != nil && identity.SubjectID == v.userID
}

// Load fetches the profile, its posts, and the viewer's follow status.
// Gated like every protected view.
func (v *ProfileView) Load(ctx context.Context) error {
	if !v.guard.Enforce() {
		return ErrRedirected
	}

	profile, err := v.api.FetchProfile(ctx, v.userID)
	if err != nil {
		return errors.Wrap(err, "[ProfileView.Load] FetchProfile")
	}

	followers, err := v.api.FetchFollowers(ctx, v.userID)
	if err != nil {
		return errors.Wrap(err, "[ProfileView.Load] FetchFollowers")
	}
	following, err := v.api.FetchFollowing(ctx, v.userID)
	if err != nil {
		return errors.Wrap(err, "[ProfileView.Load] FetchFollowing")
	}
	profile.Followers = int64(len(followers))
	profile.Following = int64(len(following))

	if !v.IsOwn() {
		status, err := v.api.FetchFollowStatus(ctx, v.userID)
		if err != nil {
			return errors.Wrap(err, "[ProfileView.Load] FetchFollowStatus")
		}
		profile.IsFollowedByMe = status.IsFollowing
		profile.FollowsMeBack = status.FollowedBack
	}

	posts, err := v.api.FetchUserPosts(ctx, v.userID)
	if err != nil {
		return errors.Wrap(err, "[ProfileView.Load] FetchUserPosts")
	}

	v.profile = reconcile.NewCell(*profile)
	v.posts = posts
	return nil
}

// Profile returns the current profile snapshot.
func (v *ProfileView) Profile() (Profile, error) {
	if v.profile == nil {
		return Profile{}, errors.Wrap(ErrNotLoaded, "[ProfileView.Profile]")
	}
	return v.profile.Get(), nil
}

// Posts returns the profile's post snapshots.
func (v *ProfileView) Posts() []Post {
	return v.posts
}

// ToggleFollow flips the viewer's follow edge toward this user, adjusting
// the follower count optimistically. FollowsMeBack is the user's edge
// toward the viewer and is left alone in both directions.
func (v *ProfileView) ToggleFollow(ctx context.Context) error {
	if v.profile == nil {
		return errors.Wrap(ErrNotLoaded, "[ProfileView.ToggleFollow]")
	}
	if v.IsOwn() {
		return errors.New("[ProfileView.ToggleFollow] cannot follow yourself")
	}

	var following bool
	return reconcile.Do(ctx, v.rec, v.profile, reconcile.Mutation[Profile]{
		EntityID: userEntityID(v.userID),
		Apply: func(p Profile) Profile {
			following = !p.IsFollowedByMe
			if following {
				p.Followers++
			} else {
				p.Followers--
			}
			p.IsFollowedByMe = following
			return p
		},
		Invert: func(p Profile) Profile {
			if following {
				p.Followers--
			} else {
				p.Followers++
			}
			p.IsFollowedByMe = !following
			return p
		},
		Call: func(ctx context.Context) (*transport.Result, error) {
			if following {
				return v.api.followUser(ctx, v.userID)
			}
			return v.api.unfollowUser(ctx, v.userID)
		},
		Duplicate: func(err error) bool {
			if following {
				return isDuplicate(err, codeAlreadyFollowing)
			}
			return isDuplicate(err, codeNotFollowing)
		},
	})
}

// Followers fetches the current follower list for the followers modal.
func (v *ProfileView) Followers(ctx context.Context) ([]Profile, error) {
	return v.api.FetchFollowers(ctx, v.userID)
}

// Following fetches the current following list for the following modal.
func (v *ProfileView) Following(ctx context.Context) ([]Profile, error) {
	return v.api.FetchFollowing(ctx, v.userID)
}
