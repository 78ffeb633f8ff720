// pkg/shell/shell.go
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/devshell-sh/devshell/pkg/environ"
)

// ErrNested indicates the process is already inside a devshell environment
var ErrNested = errors.New("shell: already inside a devshell environment, exit it first")

// Options configures the launcher
type Options struct {
	// PrintOnly forces export-lines output instead of spawning a shell
	PrintOnly bool

	// Stdout overrides the export destination (default os.Stdout)
	Stdout io.Writer

	// Env overrides the base environment (default os.Environ())
	Env []string
}

// Launcher spawns an interactive session with a computed environment
// delta applied, or renders the delta as export lines when there is no
// terminal to attach to.
type Launcher struct {
	delta  *environ.Delta
	logger *log.Logger
}

// New creates a Launcher. A nil logger discards all output.
func New(delta *environ.Delta, logger *log.Logger) *Launcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Launcher{
		delta:  delta,
		logger: logger,
	}
}

// Launch enters the environment. Interactive when stdout is a terminal,
// otherwise the delta is printed as export lines for eval. The child
// shell's exit error, if any, is returned as-is so callers can propagate
// the exit code.
func (l *Launcher) Launch(ctx context.Context) error {
	opts := &Options{}
	return l.LaunchWithOptions(ctx, opts)
}

// LaunchWithOptions is Launch with explicit options
func (l *Launcher) LaunchWithOptions(ctx context.Context, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	baseEnv := opts.Env
	if baseEnv == nil {
		baseEnv = os.Environ()
	}

	if marker := lookupEnv(baseEnv, environ.MarkerVar); marker != "" {
		return fmt.Errorf("%w (active: %s)", ErrNested, marker)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if opts.PrintOnly || !stdoutIsTerminal() {
		return l.printExports(stdout)
	}

	return l.spawn(ctx, baseEnv)
}

// printExports writes the environment delta as eval-able shell lines
func (l *Launcher) printExports(w io.Writer) error {
	for _, line := range l.delta.Exports() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("writing exports: %w", err)
		}
	}
	return nil
}

// spawn starts the user's shell with the delta applied
func (l *Launcher) spawn(ctx context.Context, baseEnv []string) error {
	binary := lookupEnv(baseEnv, "SHELL")
	if binary == "" {
		binary = "/bin/sh"
	}
	name := filepath.Base(binary)
	env := l.delta.Environ(baseEnv)

	var cmd *exec.Cmd
	switch name {
	case "bash":
		rcFile, err := l.writeBashRC()
		if err != nil {
			return err
		}
		defer os.Remove(rcFile)
		cmd = exec.CommandContext(ctx, binary, "--rcfile", rcFile, "-i")

	case "zsh":
		zdotdir, err := l.writeZshRC()
		if err != nil {
			return err
		}
		defer os.RemoveAll(zdotdir)
		env = append(env, "ZDOTDIR="+zdotdir)
		cmd = exec.CommandContext(ctx, binary, "-i")

	default:
		// Unknown shells still get the environment, just no prompt setup.
		cmd = exec.CommandContext(ctx, binary, "-i")
	}

	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	l.logger.Printf("Entering %s environment via %s", l.delta.Name, binary)
	return cmd.Run()
}

// writeBashRC writes a temporary rcfile that loads the user's own rc
// before marking the prompt
func (l *Launcher) writeBashRC() (string, error) {
	f, err := os.CreateTemp("", "devshell-rc-*.sh")
	if err != nil {
		return "", fmt.Errorf("creating rcfile: %w", err)
	}

	_, err = f.WriteString(bashRC(l.delta.Name))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing rcfile: %w", err)
	}

	return f.Name(), nil
}

// writeZshRC creates a throwaway ZDOTDIR whose .zshrc chains to the
// user's real one
func (l *Launcher) writeZshRC() (string, error) {
	dir, err := os.MkdirTemp("", "devshell-zdotdir-*")
	if err != nil {
		return "", fmt.Errorf("creating zdotdir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".zshrc"), []byte(zshRC(l.delta.Name)), 0644); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("writing zshrc: %w", err)
	}

	return dir, nil
}

// bashRC renders the bash rcfile body
func bashRC(name string) string {
	var b strings.Builder
	b.WriteString("[ -f \"$HOME/.bashrc\" ] && . \"$HOME/.bashrc\"\n")
	fmt.Fprintf(&b, "PS1=\"(%s) $PS1\"\n", name)
	return b.String()
}

// zshRC renders the zsh rcfile body
func zshRC(name string) string {
	var b strings.Builder
	b.WriteString("[ -f \"$HOME/.zshrc\" ] && . \"$HOME/.zshrc\"\n")
	fmt.Fprintf(&b, "PS1=\"(%s) $PS1\"\n", name)
	return b.String()
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// lookupEnv finds a key in an os.Environ style slice
func lookupEnv(env []string, key string) string {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return strings.TrimPrefix(kv, prefix)
		}
	}
	return ""
}
