// Package storage uploads and resolves user avatars in the backend
// object store, keyed by owner uid.
package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"

	"github.com/chatline/chatline/fault"
)

const avatarPrefix = "avatars/"

type Avatars struct {
	app    *firebase.App
	bucket string
}

// New returns an avatar store over the named bucket; an empty name uses
// the app's default bucket.
func New(app *firebase.App, bucket string) *Avatars {
	return &Avatars{app: app, bucket: bucket}
}

func (a *Avatars) object(ctx context.Context, ownerUID string) (*gcs.ObjectHandle, error) {
	client, err := a.app.Storage(ctx)
	if err != nil {
		return nil, fault.E(fault.KindUnknown, "storage.client", err)
	}
	var bucket *gcs.BucketHandle
	if a.bucket != "" {
		bucket, err = client.Bucket(a.bucket)
	} else {
		bucket, err = client.DefaultBucket()
	}
	if err != nil {
		return nil, fault.E(fault.KindInvalid, "storage.bucket", err)
	}
	return bucket.Object(avatarPrefix + ownerUID), nil
}

// Upload replaces the owner's avatar and returns its download URL.
func (a *Avatars) Upload(ctx context.Context, ownerUID string, r io.Reader, contentType string) (string, error) {
	const op = "storage.upload"
	if ownerUID == "" {
		return "", fault.Errorf(fault.KindInvalid, op, "owner uid required")
	}
	obj, err := a.object(ctx, ownerUID)
	if err != nil {
		return "", err
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fault.E(fault.KindTransient, op, err)
	}
	if err := w.Close(); err != nil {
		return "", fault.FromRPC(op, err)
	}
	return a.URL(ctx, ownerUID)
}

// URL resolves the download URL for the owner's avatar.
func (a *Avatars) URL(ctx context.Context, ownerUID string) (string, error) {
	const op = "storage.url"
	obj, err := a.object(ctx, ownerUID)
	if err != nil {
		return "", err
	}
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return "", fault.E(fault.KindNotFound, op, err)
	}
	if err != nil {
		return "", fault.FromRPC(op, err)
	}
	return attrs.MediaLink, nil
}
