// Package directory maintains user profiles and a live contacts view.
package directory

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chatline/chatline/contract"
	"github.com/chatline/chatline/fault"
	"github.com/chatline/chatline/logger"
	"github.com/chatline/chatline/stream"
)

const (
	usersCollection = "users"

	displayNameField  = "displayName"
	emailField        = "email"
	avatarURLField    = "avatarUrl"
	anonymousField    = "anonymous"
	lastActiveAtField = "lastActiveAt"
	fingerprintsField = "deviceFingerprints"

	placeholderPrefix = "user-"
	placeholderIDLen  = 8
)

type Profile struct {
	ID                 string
	DisplayName        string
	Email              string
	AvatarURL          string
	Anonymous          bool
	LastActiveAt       time.Time
	DeviceFingerprints []string
}

// ProfileUpdate carries fields to merge into a profile. Empty strings
// mean "leave as is" — updates never destroy previously set fields.
type ProfileUpdate struct {
	DisplayName string
	Email       string
	AvatarURL   string
	Anonymous   bool
	Fingerprint string
}

type Directory struct {
	fs *firestore.Client
}

func New(fs *firestore.Client) *Directory {
	return &Directory{fs: fs}
}

// EnsureProfile merge-upserts the caller's profile: provided fields are
// written, the device fingerprint joins the profile's set without
// duplication, and last-active is bumped to the server's clock.
func (d *Directory) EnsureProfile(ctx context.Context, uid string, u ProfileUpdate) error {
	const op = "directory.ensure"
	ref := d.fs.Collection(usersCollection).Doc(uid)

	fresh := false
	if u.DisplayName == "" {
		var err error
		fresh, err = d.isNewProfile(ctx, ref)
		if err != nil {
			return fault.FromRPC(op, err)
		}
	}

	_, err := ref.Set(ctx, profileUpdateData(uid, u, fresh), firestore.MergeAll)
	return fault.FromRPC(op, err)
}

// profileUpdateData builds the merge payload for one sign-in or profile
// edit. Empty fields are omitted so existing values survive; a brand
// new profile with no display name gets the truncated-id placeholder so
// it sorts and renders like any other; the fingerprint joins the set
// via an array-union transform, never duplicating.
func profileUpdateData(uid string, u ProfileUpdate, newProfile bool) map[string]any {
	data := map[string]any{
		anonymousField:    u.Anonymous,
		lastActiveAtField: firestore.ServerTimestamp,
	}
	switch {
	case u.DisplayName != "":
		data[displayNameField] = u.DisplayName
	case newProfile:
		data[displayNameField] = PlaceholderName(uid)
	}
	if u.Email != "" {
		data[emailField] = u.Email
	}
	if u.AvatarURL != "" {
		data[avatarURLField] = u.AvatarURL
	}
	if u.Fingerprint != "" {
		data[fingerprintsField] = firestore.ArrayUnion(u.Fingerprint)
	}
	return data
}

// isNewProfile is a plain read before the merge write; a concurrent
// first sign-in can still race it, in which case both writers set the
// same placeholder.
func (d *Directory) isNewProfile(ctx context.Context, ref *firestore.DocumentRef) (bool, error) {
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	var fp contract.FirestoreProfile
	if err := snap.DataTo(&fp); err != nil {
		return false, err
	}
	return strings.TrimSpace(fp.DisplayName) == "", nil
}

// GetProfile fetches one profile, with the placeholder display name
// applied when the stored one is empty.
func (d *Directory) GetProfile(ctx context.Context, uid string) (Profile, error) {
	const op = "directory.get"
	snap, err := d.fs.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		return Profile{}, fault.FromRPC(op, err)
	}
	var fp contract.FirestoreProfile
	if err := snap.DataTo(&fp); err != nil {
		return Profile{}, fault.E(fault.KindUnknown, op, err)
	}
	return profileFromDoc(uid, fp), nil
}

// SubscribeUsers delivers the full profile set ordered by display name,
// with selfUID filtered out, on every backend-observed change. Close
// the returned stream to release the listener.
func (d *Directory) SubscribeUsers(ctx context.Context, selfUID string) *stream.Stream[Profile] {
	q := d.fs.Collection(usersCollection).OrderBy(displayNameField, firestore.Asc)
	return stream.Listen(ctx, q, func(doc *firestore.DocumentSnapshot) (Profile, bool, error) {
		var fp contract.FirestoreProfile
		if err := doc.DataTo(&fp); err != nil {
			logger.FromContext(ctx).Printf("skipping malformed profile %s: %v", doc.Ref.ID, err)
			return Profile{}, false, nil
		}
		p, ok := visibleProfile(doc.Ref.ID, selfUID, fp)
		return p, ok, nil
	})
}

// visibleProfile maps one user document into the directory view,
// dropping the caller's own profile.
func visibleProfile(docID, selfUID string, fp contract.FirestoreProfile) (Profile, bool) {
	if docID == selfUID {
		return Profile{}, false
	}
	return profileFromDoc(docID, fp), true
}

func profileFromDoc(id string, fp contract.FirestoreProfile) Profile {
	return Profile{
		ID:                 id,
		DisplayName:        PlaceholderName(id, fp.DisplayName),
		Email:              fp.Email,
		AvatarURL:          fp.AvatarURL,
		Anonymous:          fp.Anonymous,
		LastActiveAt:       fp.LastActiveAt,
		DeviceFingerprints: fp.DeviceFingerprints,
	}
}

// PlaceholderName returns the first non-blank candidate, falling back
// to a name derived from the uid. It never returns an empty string.
func PlaceholderName(uid string, candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	short := uid
	if len(short) > placeholderIDLen {
		short = short[:placeholderIDLen]
	}
	return placeholderPrefix + short
}
