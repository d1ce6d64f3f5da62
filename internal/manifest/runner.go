package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/unwindhq/unwind/internal/logging"
)

// Runner executes the declarative manager's CLI. Swapped for a recorder in
// tests.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner shells out to the terraform binary.
type ExecRunner struct {
	// Binary defaults to "terraform".
	Binary string
}

func (r *ExecRunner) binary() string {
	if r.Binary == "" {
		return "terraform"
	}
	return r.Binary
}

func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	logging.With("manifest").Debug("running terraform", "dir", dir, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, r.binary(), args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("terraform %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
