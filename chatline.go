// Package chatline is a messaging client core backed by a managed
// document store: sign-in, a live contacts directory, find-or-create
// conversations and live message feeds. The backend owns all state;
// this layer holds no authoritative local copies.
package chatline

import (
	"context"
	"io"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/chatline/chatline/auth"
	"github.com/chatline/chatline/chat"
	"github.com/chatline/chatline/config"
	"github.com/chatline/chatline/device"
	"github.com/chatline/chatline/directory"
	"github.com/chatline/chatline/fault"
	"github.com/chatline/chatline/log"
	"github.com/chatline/chatline/storage"
	"github.com/chatline/chatline/stream"
)

const (
	ErrorMsgLogField = "errorMsg"
	userIDLogField   = "userID"
)

// Client wires the components together around one session. The session
// is explicit state on the client, injected into the services that need
// it; nothing reads it ambiently.
type Client struct {
	cfg      config.Config
	app      *firebase.App
	fs       *firestore.Client
	resolver *auth.Resolver
	dir      *directory.Directory
	avatars  *storage.Avatars

	session *auth.Session
	chats   *chat.Service
}

func Open(ctx context.Context, cfg config.Config) (*Client, error) {
	const op = "chatline.open"
	if cfg.ProjectID == "" {
		return nil, fault.Errorf(fault.KindInvalid, op, "project id required")
	}
	if cfg.APIKey == "" {
		return nil, fault.Errorf(fault.KindInvalid, op, "api key required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fault.E(fault.KindUnknown, op, err)
	}
	fs, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fault.E(fault.KindUnknown, op, err)
	}

	resolverOpts := []auth.Option{auth.WithApp(app)}
	if cfg.EmulatorHost != "" {
		base := "http://" + cfg.EmulatorHost
		resolverOpts = append(resolverOpts, auth.WithEndpoints(
			base+"/identitytoolkit.googleapis.com/v1",
			base+"/securetoken.googleapis.com/v1",
		))
	}

	return &Client{
		cfg:      cfg,
		app:      app,
		fs:       fs,
		resolver: auth.NewResolver(cfg.APIKey, resolverOpts...),
		dir:      directory.New(fs),
		avatars:  storage.New(app, cfg.StorageBucket),
	}, nil
}

func (c *Client) SignInAnonymously(ctx context.Context) (*auth.Session, error) {
	return c.signIn(ctx, auth.Credentials{Mode: auth.ModeAnonymous})
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	return c.signIn(ctx, auth.Credentials{Mode: auth.ModePassword, Email: email, Password: password})
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (*auth.Session, error) {
	return c.signIn(ctx, auth.Credentials{
		Mode:        auth.ModeRegister,
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
}

func (c *Client) SignInWithCustomToken(ctx context.Context, uid string) (*auth.Session, error) {
	return c.signIn(ctx, auth.Credentials{Mode: auth.ModeCustomToken, UID: uid})
}

// signIn authenticates and merge-upserts the profile with the device
// fingerprint. A fingerprint failure is logged, not fatal: the linkage
// is best-effort by contract.
func (c *Client) signIn(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	logger := log.LoggerFromContext(ctx)

	session, err := c.resolver.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	logger = logger.With(slog.String(userIDLogField, session.UID))

	fingerprint, err := device.Fingerprint()
	if err != nil {
		logger.Warn("device fingerprint unavailable", slog.String(ErrorMsgLogField, err.Error()))
	}

	displayName := creds.DisplayName
	if displayName == "" {
		displayName = session.DisplayName
	}
	update := directory.ProfileUpdate{
		DisplayName: displayName,
		Email:       session.Email,
		Anonymous:   session.Anonymous,
		Fingerprint: fingerprint,
	}
	if err := c.dir.EnsureProfile(ctx, session.UID, update); err != nil {
		return nil, err
	}
	logger.Info("signed in", slog.Bool("anonymous", session.Anonymous))

	c.session = session
	c.chats = chat.NewService(c.fs, c.dir, session)
	return session, nil
}

// Session returns the current session, or nil before sign-in.
func (c *Client) Session() *auth.Session { return c.session }

func (c *Client) Directory() *directory.Directory { return c.dir }

func (c *Client) Avatars() *storage.Avatars { return c.avatars }

// Chats returns the conversation service for the signed-in session.
func (c *Client) Chats() (*chat.Service, error) {
	if c.session == nil {
		return nil, fault.Errorf(fault.KindAuth, "chatline.chats", "not signed in")
	}
	return c.chats, nil
}

// SubscribeContacts streams every known profile except the caller's,
// ordered by display name.
func (c *Client) SubscribeContacts(ctx context.Context) (*stream.Stream[directory.Profile], error) {
	if c.session == nil {
		return nil, fault.Errorf(fault.KindAuth, "chatline.contacts", "not signed in")
	}
	return c.dir.SubscribeUsers(ctx, c.session.UID), nil
}

// UpdateProfile pushes display name and avatar URL to the auth record
// and merges them into the directory profile. Empty fields are left
// untouched.
func (c *Client) UpdateProfile(ctx context.Context, displayName, avatarURL string) error {
	if c.session == nil {
		return fault.Errorf(fault.KindAuth, "chatline.update", "not signed in")
	}
	if err := c.resolver.UpdateProfile(ctx, c.session, displayName, avatarURL); err != nil {
		return err
	}
	return c.dir.EnsureProfile(ctx, c.session.UID, directory.ProfileUpdate{
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Anonymous:   c.session.Anonymous,
	})
}

// SetAvatar uploads the avatar bytes and records the resulting download
// URL on the auth record and the profile.
func (c *Client) SetAvatar(ctx context.Context, r io.Reader, contentType string) (string, error) {
	if c.session == nil {
		return "", fault.Errorf(fault.KindAuth, "chatline.avatar", "not signed in")
	}
	url, err := c.avatars.Upload(ctx, c.session.UID, r, contentType)
	if err != nil {
		return "", err
	}
	if err := c.UpdateProfile(ctx, "", url); err != nil {
		return "", err
	}
	return url, nil
}

// Refresh renews the session's ID token when it is close to expiry.
func (c *Client) Refresh(ctx context.Context) error {
	if c.session == nil {
		return fault.Errorf(fault.KindAuth, "chatline.refresh", "not signed in")
	}
	if !c.session.Expired() {
		return nil
	}
	return c.resolver.Refresh(ctx, c.session)
}

// SignOut drops the session locally. Live subscriptions opened under it
// keep running until their owners close them.
func (c *Client) SignOut() {
	if c.session == nil {
		return
	}
	c.resolver.SignOut(c.session)
	c.session = nil
	c.chats = nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}
