package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/raphi011/cachemgr/internal/log"
)

// RunContext runs name with args in dir and returns stderr as the error
// message if it fails. A cancelled context is returned as ctx.Err().
func RunContext(ctx context.Context, dir, name string, args ...string) error {
	_, err := OutputContext(ctx, dir, name, args...)
	return err
}

// OutputContext runs name with args in dir and returns stdout, with
// stderr in the error if it fails.
func OutputContext(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()
	defer func() { done(time.Since(start)) }()

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	var stderr bytes.Buffer
	c.Stderr = &stderr
	out, err := c.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s", msg)
		}
		return nil, err
	}
	return out, nil
}

// openCommand returns the file browser launcher for goos.
func openCommand(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "explorer", nil
	default:
		return "xdg-open", nil
	}
}

// OpenInFileBrowser shows path in the system file browser.
func OpenInFileBrowser(ctx context.Context, path string) error {
	name, args := openCommand(runtime.GOOS)
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("no file browser launcher: %w", err)
	}
	return RunContext(ctx, "", name, append(args, path)...)
}
