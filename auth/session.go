package auth

import (
	"strconv"
	"time"

	"github.com/chatline/chatline/contract"
	"github.com/chatline/chatline/fault"
)

// expirySkew renews sessions slightly before the backend deadline.
const expirySkew = 30 * time.Second

// Session is an authenticated identity. It is an explicit value handed
// to the components that need it; there is no package-level current
// user.
type Session struct {
	UID          string
	Email        string
	DisplayName  string
	Anonymous    bool
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt.Add(-expirySkew))
}

func sessionFromSignIn(resp contract.SignInResponse, anonymous bool, now time.Time) (*Session, error) {
	ttl, err := parseExpiresIn(resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	return &Session{
		UID:          resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		Anonymous:    anonymous,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    now.Add(ttl),
	}, nil
}

// parseExpiresIn parses the decimal-seconds string the REST API returns.
func parseExpiresIn(s string) (time.Duration, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return 0, fault.Errorf(fault.KindAuth, "auth.session", "invalid expiresIn %q", s)
	}
	return time.Duration(secs) * time.Second, nil
}
