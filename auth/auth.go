// Package auth resolves local credentials to a backend identity via the
// Identity Toolkit REST API, with custom-token minting through the
// Firebase Admin SDK for operator tooling.
package auth

import (
	"context"
	"net/http"

	firebase "firebase.google.com/go/v4"

	"github.com/chatline/chatline/contract"
	"github.com/chatline/chatline/fault"
)

type Mode int

const (
	// ModeAnonymous mints a fresh identity with no credentials.
	ModeAnonymous Mode = iota
	// ModePassword signs in an existing email identity.
	ModePassword
	// ModeRegister creates a new email identity.
	ModeRegister
	// ModeCustomToken mints an admin custom token for a known UID and
	// exchanges it for a session. Requires admin credentials.
	ModeCustomToken
)

type Credentials struct {
	Mode     Mode
	Email    string
	Password string
	// UID for ModeCustomToken.
	UID string
	// DisplayName to merge into the profile after sign-in; optional.
	DisplayName string
}

// Resolver authenticates against the managed backend. It performs no
// retries; failures surface to the caller with a fault kind.
type Resolver struct {
	apiKey          string
	httpClient      *http.Client
	app             *firebase.App
	identityBase    string
	secureTokenBase string
	now             nowFunc
}

type Option func(*Resolver)

// WithApp enables ModeCustomToken via the given admin app.
func WithApp(app *firebase.App) Option {
	return func(r *Resolver) { r.app = app }
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// WithEndpoints overrides the API hosts, for tests and emulators.
func WithEndpoints(identityBase, secureTokenBase string) Option {
	return func(r *Resolver) {
		r.identityBase = identityBase
		r.secureTokenBase = secureTokenBase
	}
}

func NewResolver(apiKey string, opts ...Option) *Resolver {
	r := &Resolver{
		apiKey:          apiKey,
		httpClient:      http.DefaultClient,
		identityBase:    identityToolkitBase,
		secureTokenBase: secureTokenBase,
		now:             defaultNow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Authenticate resolves credentials to a session. Anonymous mode always
// asks the backend for a new identity; whether it maps back to a
// previously-seen device is the backend's concern, driven by the device
// fingerprint recorded on the profile afterwards.
func (r *Resolver) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	switch creds.Mode {
	case ModeAnonymous:
		return r.signUp(ctx, "", "")
	case ModeRegister:
		if creds.Email == "" || creds.Password == "" {
			return nil, fault.Errorf(fault.KindInvalid, "auth.register", "email and password required")
		}
		return r.signUp(ctx, creds.Email, creds.Password)
	case ModePassword:
		if creds.Email == "" || creds.Password == "" {
			return nil, fault.Errorf(fault.KindInvalid, "auth.signin", "email and password required")
		}
		return r.signInWithPassword(ctx, creds.Email, creds.Password)
	case ModeCustomToken:
		return r.signInWithCustomToken(ctx, creds.UID)
	default:
		return nil, fault.Errorf(fault.KindInvalid, "auth.authenticate", "unknown mode %d", creds.Mode)
	}
}

// Refresh exchanges the refresh token for a new ID token, updating the
// session in place.
func (r *Resolver) Refresh(ctx context.Context, s *Session) error {
	const op = "auth.refresh"
	var resp contract.RefreshResponse
	req := contract.RefreshRequest{GrantType: "refresh_token", RefreshToken: s.RefreshToken}
	if err := r.post(ctx, op, r.secureTokenURL(), req, &resp); err != nil {
		return err
	}
	ttl, err := parseExpiresIn(resp.ExpiresIn)
	if err != nil {
		return err
	}
	s.IDToken = resp.IDToken
	s.RefreshToken = resp.RefreshToken
	s.ExpiresAt = r.now().Add(ttl)
	return nil
}

// UpdateProfile pushes display name and avatar URL to the auth record.
func (r *Resolver) UpdateProfile(ctx context.Context, s *Session, displayName, photoURL string) error {
	const op = "auth.update"
	req := contract.UpdateAccountRequest{
		IDToken:           s.IDToken,
		DisplayName:       displayName,
		PhotoURL:          photoURL,
		ReturnSecureToken: false,
	}
	var resp contract.SignInResponse
	if err := r.post(ctx, op, r.identityURL("accounts:update"), req, &resp); err != nil {
		return err
	}
	if displayName != "" {
		s.DisplayName = displayName
	}
	return nil
}

// SignOut invalidates the session locally. The backend keeps the
// refresh token valid until it expires; revocation is an admin action
// outside this layer.
func (r *Resolver) SignOut(s *Session) {
	s.IDToken = ""
	s.RefreshToken = ""
	s.ExpiresAt = defaultNow()
}

func (r *Resolver) signUp(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.signup"
	req := contract.SignUpRequest{Email: email, Password: password, ReturnSecureToken: true}
	var resp contract.SignInResponse
	if err := r.post(ctx, op, r.identityURL("accounts:signUp"), req, &resp); err != nil {
		return nil, err
	}
	return sessionFromSignIn(resp, email == "", r.now())
}

func (r *Resolver) signInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.signin"
	req := contract.SignInRequest{Email: email, Password: password, ReturnSecureToken: true}
	var resp contract.SignInResponse
	if err := r.post(ctx, op, r.identityURL("accounts:signInWithPassword"), req, &resp); err != nil {
		return nil, err
	}
	return sessionFromSignIn(resp, false, r.now())
}

// signInWithCustomToken mints a custom token for uid and exchanges it,
// mirroring what operator tooling does to impersonate test users.
func (r *Resolver) signInWithCustomToken(ctx context.Context, uid string) (*Session, error) {
	const op = "auth.customtoken"
	if uid == "" {
		return nil, fault.Errorf(fault.KindInvalid, op, "uid required")
	}
	if r.app == nil {
		return nil, fault.Errorf(fault.KindInvalid, op, "custom token mode requires admin credentials")
	}
	client, err := r.app.Auth(ctx)
	if err != nil {
		return nil, fault.E(fault.KindAuth, op, err)
	}
	token, err := client.CustomToken(ctx, uid)
	if err != nil {
		return nil, fault.E(fault.KindAuth, op, err)
	}

	req := contract.CustomTokenSignInRequest{Token: token, ReturnSecureToken: true}
	var resp contract.SignInResponse
	if err := r.post(ctx, op, r.identityURL("accounts:signInWithCustomToken"), req, &resp); err != nil {
		return nil, err
	}
	return sessionFromSignIn(resp, false, r.now())
}
