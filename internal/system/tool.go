package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ToolError is the structured failure of an external tool invocation.
type ToolError struct {
	Tool    string
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.Code, e.Message)
}

// maxMessage keeps the tail of noisy tool output, where the error usually is.
const maxMessage = 600

// RunTool runs name with args and maps a non-zero exit or a start failure to
// a *ToolError carrying the tail of the combined output.
func RunTool(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return nil
	}

	te := &ToolError{Tool: name, Code: -1, Message: tail(out.String())}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.Code = exitErr.ExitCode()
	} else if te.Message == "" {
		te.Message = err.Error()
	}
	return te
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxMessage {
		return s
	}
	s = s[len(s)-maxMessage:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}
