package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"github.com/jrsteele09/go-social-client/guard"
	"github.com/jrsteele09/go-social-client/internal/config"
	"github.com/jrsteele09/go-social-client/reconcile"
	"github.com/jrsteele09/go-social-client/session"
	"github.com/jrsteele09/go-social-client/session/tokenstore"
	"github.com/jrsteele09/go-social-client/social"
	"github.com/jrsteele09/go-social-client/transport"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()

	store, err := tokenstore.NewFile(c.GetDataFolder())
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(store, session.WithLivenessInterval(c.GetLivenessInterval()))
	if err != nil {
		return err
	}
	if err := sessions.Initialize(); err != nil {
		return err
	}
	sessions.StartLivenessWatch()
	defer sessions.Close()

	gateway, err := transport.New(c.GetAPIBaseURL(), sessions,
		transport.WithUnauthorizedHook(func() { _ = sessions.Logout() }))
	if err != nil {
		return err
	}

	api, err := social.NewAPI(gateway)
	if err != nil {
		return err
	}

	gate, err := guard.New(sessions, guard.RedirectorFunc(func(target string) {
		fmt.Printf("Not logged in - run `social login` first (%s)\n", target)
	}))
	if err != nil {
		return err
	}
	defer gate.Teardown()

	rec := reconcile.New()

	app := &app{config: c, sessions: sessions, api: api, guard: gate, rec: rec}
	return app.dispatch(os.Args[1:])
}

type app struct {
	config   config.Config
	sessions *session.Manager
	api      *social.API
	guard    *guard.Guard
	rec      *reconcile.Reconciler
}

func (a *app) dispatch(args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "login":
		return a.login(ctx)
	case "logout":
		return a.sessions.Logout()
	case "whoami":
		return a.whoami()
	case "feed":
		return a.feed(ctx)
	case "like":
		return a.like(ctx, args[1:])
	case "follow":
		return a.follow(ctx, args[1:])
	default:
		a.usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) usage() {
	figure.NewFigure(a.config.GetAppName(), "cybermedium", true).Print()
	fmt.Println()
	fmt.Println("usage: social <login|logout|whoami|feed|like <post-id>|follow <user-id>>")
}

func (a *app) login(ctx context.Context) error {
	fmt.Print("email: ")
	reader := bufio.NewReader(os.Stdin)
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	fmt.Print("password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return err
	}

	token, err := a.api.Login(ctx, strings.TrimSpace(email), string(password))
	if err != nil {
		return err
	}

	identity, err := a.sessions.Login(token)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as user %d (valid until %s)\n", identity.SubjectID, identity.ExpiresAt.Format("15:04:05"))
	return nil
}

func (a *app) whoami() error {
	identity := a.sessions.CurrentIdentity()
	if identity == nil {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("user %d %s(session expires %s)\n", identity.SubjectID, nameField(identity), identity.ExpiresAt.Format("15:04:05"))
	return nil
}

func nameField(identity *session.Identity) string {
	if identity.DisplayName == "" {
		return ""
	}
	return fmt.Sprintf("(%s) ", identity.DisplayName)
}

func (a *app) feed(ctx context.Context) error {
	feed, err := social.NewFeed(a.api, a.sessions, a.guard, a.rec)
	if err != nil {
		return err
	}
	if err := feed.Load(ctx); err != nil {
		return err
	}
	for _, post := range feed.Posts() {
		liked := " "
		if post.LikedByMe {
			liked = "*"
		}
		fmt.Printf("[%s] #%-5d %-30s likes=%d\n", liked, post.ID, post.Title, post.Likes)
	}
	return nil
}

func (a *app) like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: social like <post-id>")
	}
	postID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad post id %q", args[0])
	}

	feed, err := social.NewFeed(a.api, a.sessions, a.guard, a.rec)
	if err != nil {
		return err
	}
	if err := feed.Load(ctx); err != nil {
		return err
	}
	if err := feed.ToggleLike(ctx, postID); err != nil {
		return err
	}
	post, err := feed.Post(postID)
	if err != nil {
		return err
	}
	fmt.Printf("post %d: likes=%d likedByMe=%v\n", post.ID, post.Likes, post.LikedByMe)
	return nil
}

func (a *app) follow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: social follow <user-id>")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad user id %q", args[0])
	}

	view, err := social.NewProfileView(a.api, a.sessions, a.guard, a.rec, userID)
	if err != nil {
		return err
	}
	if err := view.Load(ctx); err != nil {
		return err
	}
	if err := view.ToggleFollow(ctx); err != nil {
		return err
	}
	profile, err := view.Profile()
	if err != nil {
		return err
	}
	state := "not following"
	if profile.IsFollowedByMe {
		state = "following"
	}
	fmt.Printf("%s (@%s): %s, followers=%d\n", profile.Name, profile.Nick, state, profile.Followers)
	return nil
}
