// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a container runtime (docker or podman) and
// runs one-shot conversion containers that read stdin and write stdout.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

const (
	// probeTimeout bounds "info" and image checks; a stopped docker daemon
	// can otherwise hang them.
	probeTimeout = 10 * time.Second

	// maxStderr bounds how much container stderr is quoted in errors.
	maxStderr = 512
)

// Runtime runs conversion images with a specific container binary.
type Runtime interface {
	// Name returns the binary name ("docker" or "podman").
	Name() string

	// ImageExists reports an error unless image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run executes image with args appended to its entrypoint, piping stdin
	// and stdout. The container process is killed when ctx ends.
	Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error
}

// executor runs commands; tests replace it.
type executor interface {
	LookPath(file string) (string, error)
	Probe(ctx context.Context, name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Probe(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// binary describes one supported runtime.
type binary struct {
	name       string
	imageCheck []string
}

// Supported runtimes in detection order.
var binaries = []binary{
	{name: "docker", imageCheck: []string{"image", "inspect"}},
	{name: "podman", imageCheck: []string{"image", "exists"}},
}

type runtime struct {
	bin  binary
	exec executor
}

func (r *runtime) Name() string { return r.bin.name }

// check verifies the binary is on PATH and its daemon answers.
func (r *runtime) check(ctx context.Context) error {
	if _, err := r.exec.LookPath(r.bin.name); err != nil {
		return fmt.Errorf("%s: not on PATH", r.bin.name)
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := r.exec.Probe(ctx, r.bin.name, "info"); err != nil {
		return fmt.Errorf("%s: info failed: %w", r.bin.name, err)
	}
	return nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	args := append(append([]string{}, r.bin.imageCheck...), image)
	if err := r.exec.Probe(ctx, r.bin.name, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin.name, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmdArgs := append([]string{"run", "--rm", "-i", image}, args...)

	var stderr bytes.Buffer
	err := r.exec.RunPiped(ctx, r.bin.name, cmdArgs, stdin, stdout, &stderr)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("running %s in %s: %w", image, r.bin.name, ctx.Err())
	}
	if msg := tail(stderr.String(), maxStderr); msg != "" {
		return fmt.Errorf("running %s in %s: %w: %s", image, r.bin.name, err, msg)
	}
	return fmt.Errorf("running %s in %s: %w", image, r.bin.name, err)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}

// DetectRuntime returns the first working runtime, docker before podman.
// A non-empty preferred name restricts detection to that runtime.
func DetectRuntime(ctx context.Context, preferred string) (Runtime, error) {
	return detect(ctx, osExecutor{}, preferred)
}

func detect(ctx context.Context, exec executor, preferred string) (Runtime, error) {
	var errs []error
	for _, b := range binaries {
		if preferred != "" && b.name != preferred {
			continue
		}
		rt := &runtime{bin: b, exec: exec}
		if err := rt.check(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		return rt, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("unsupported container runtime %q", preferred)
	}
	return nil, fmt.Errorf("no container runtime available: %w", errors.Join(errs...))
}
