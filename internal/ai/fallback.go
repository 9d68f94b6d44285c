package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// failover wraps two Generator implementations. It calls the primary first;
// if that returns an error it logs the failure and tries the secondary.
// Which provider is primary is decided in main.go.
type failover struct {
	primary   Generator
	secondary Generator
	logger    *slog.Logger
}

// NewFailover returns a Generator that calls primary and, on failure, falls
// back to secondary. Either argument may be nil: if primary is nil it goes
// straight to secondary; if secondary is nil and primary fails, the primary
// error is returned.
//
// When both fail, the two errors are joined, primary first, so a quota
// failure on either provider is still visible to retry classification.
func NewFailover(primary, secondary Generator, logger *slog.Logger) Generator {
	return &failover{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *failover) Name() string {
	switch {
	case f.primary == nil:
		return f.secondary.Name()
	case f.secondary == nil:
		return f.primary.Name()
	}
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Generate tries the primary Generator. If it fails and a secondary is
// configured, it logs the primary error and tries the secondary. A cancelled
// context is not failed over.
func (f *failover) Generate(ctx context.Context, req Request) (Response, error) {
	if f.primary == nil {
		return f.secondary.Generate(ctx, req)
	}

	resp, primaryErr := f.primary.Generate(ctx, req)
	if primaryErr == nil {
		return resp, nil
	}
	if f.secondary == nil {
		return Response{}, fmt.Errorf("ai: primary failed and no secondary configured: %w", primaryErr)
	}
	if ctx.Err() != nil {
		return Response{}, primaryErr
	}
	f.logger.Warn("ai: primary generator failed, trying secondary",
		"primary", f.primary.Name(),
		"secondary", f.secondary.Name(),
		"error", primaryErr,
	)

	resp, err := f.secondary.Generate(ctx, req)
	if err != nil {
		return Response{}, errors.Join(
			fmt.Errorf("ai: %s: %w", f.primary.Name(), primaryErr),
			fmt.Errorf("ai: %s: %w", f.secondary.Name(), err),
		)
	}
	return resp, nil
}
