// Package logger provides a plain *log.Logger for data-layer packages,
// backed by Cloud Logging when one is installed on the context.
package logger

import (
	"context"
	"log"

	"cloud.google.com/go/logging"
)

const logID = "chatline"

type ctxKey struct{}

// NewCloud builds a standard logger writing to the Cloud Logging log
// "chatline". The returned close func flushes buffered entries.
func NewCloud(ctx context.Context, projectID string) (*log.Logger, func() error, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return client.Logger(logID).StandardLogger(logging.Info), client.Close, nil
}

func With(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger installed by With, or the process
// default logger.
func FromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
