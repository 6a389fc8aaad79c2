package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandFetcher delegates fetching to an external program, for sites that
// block plain HTTP clients. The program is invoked as
// `<name> <args...> <target>` and its stdout is the page body.
type CommandFetcher struct {
	Name string
	Args []string
	// Transform turns the requested target into the argument handed to
	// the program, the identity is used when nil.
	Transform func(target string) string
}

// NewCommandFetcher splits a command line like "bash get-amazon-html.sh"
// into a CommandFetcher.
func NewCommandFetcher(commandLine string) (CommandFetcher, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return CommandFetcher{}, fmt.Errorf("fetch command is empty")
	}
	return CommandFetcher{Name: fields[0], Args: fields[1:]}, nil
}

func (f CommandFetcher) Fetch(ctx context.Context, target string) (string, error) {
	arg := target
	if f.Transform != nil {
		arg = f.Transform(target)
	}

	args := append(append([]string{}, f.Args...), arg)
	cmd := exec.CommandContext(ctx, f.Name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", fmt.Errorf(
			"run %s: %w (stderr: %s)",
			f.Name, err, strings.TrimSpace(stderr.String()),
		)
	}
	return stdout.String(), nil
}
