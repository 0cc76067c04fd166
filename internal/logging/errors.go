package logging

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Codes and context attached with oops are
// expanded into attributes.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	log(ctx, logger, slog.LevelError, msg, err)
}

// LogWarn is LogError at warn level, for best-effort failures that did not
// fail the request.
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error) {
	log(ctx, logger, slog.LevelWarn, msg, err)
}

func log(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Log(ctx, level, msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if c := oopsErr.Context(); len(c) > 0 {
		attrs = append(attrs, "context", c)
	}
	logger.Log(ctx, level, msg, attrs...)
}
