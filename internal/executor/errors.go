package executor

import (
	"errors"
	"fmt"

	"github.com/harrison/flowctl/internal/flow"
)

// Sentinel errors a caller can match with errors.Is. A non-zero exit
// code is never one of these — it is data carried in an
// flow.ExecutionResult, not an engine error.
var (
	ErrUnsupportedShell = errors.New("unsupported shell")
	ErrInvalidShellPath = errors.New("invalid shell path")
	ErrSpawn            = errors.New("failed to spawn command")
)

// UnsupportedShellError wraps ErrUnsupportedShell with the offending
// shell type.
type UnsupportedShellError struct {
	Shell flow.ShellType
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell %q", e.Shell)
}
func (e *UnsupportedShellError) Unwrap() error { return ErrUnsupportedShell }

// InvalidShellPathError wraps ErrInvalidShellPath with the path that
// failed to parse into a program token.
type InvalidShellPathError struct {
	Path string
}

func (e *InvalidShellPathError) Error() string {
	return fmt.Sprintf("invalid shell path %q", e.Path)
}
func (e *InvalidShellPathError) Unwrap() error { return ErrInvalidShellPath }

// SpawnError wraps ErrSpawn with the command id that failed to start.
type SpawnError struct {
	CommandID flow.CommandId
	Err       error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn command %s: %v", e.CommandID, e.Err)
}
func (e *SpawnError) Unwrap() error { return e.Err }

// Is lets errors.Is match a SpawnError against ErrSpawn.
func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }
