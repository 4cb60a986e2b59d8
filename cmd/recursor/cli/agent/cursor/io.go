package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
)

// ReadHookInput decodes the hook payload from r. It never fails: empty,
// truncated or malformed input yields the zero value, which still resolves
// to DefaultConversationID. Unknown fields are ignored. The payload is
// streamed, so afterShellExecution output of any size is accepted.
func ReadHookInput[T any](ctx context.Context, r io.Reader) T {
	var input T
	dec := json.NewDecoder(r)
	err := dec.Decode(&input)
	switch {
	case err == nil:
		return input
	case errors.Is(err, io.EOF):
		logging.Debug(ctx, "empty hook input")
	default:
		logging.Warn(ctx, "malformed hook input, using defaults",
			slog.String("error", err.Error()),
			slog.Int64("offset", dec.InputOffset()),
		)
	}
	var zero T
	return zero
}

// WriteOutput writes v as a single JSON line.
func WriteOutput(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal hook output: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write hook output: %w", err)
	}
	return nil
}
