package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Schewwpid/note2PDF/plist"
)

// CommandBuilder runs an external program as the scene builder. The program
// receives the textual (XML) form of the graph on stdin, with UIDs written
// as "UID:<n>" strings, and writes SVG markup to stdout. The page size is
// read from the root element's width and height.
type CommandBuilder struct {
	Path string
	Args []string
	// Env is appended to the inherited environment as KEY=VALUE entries.
	Env []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// Build runs the program once for graph.
func (b *CommandBuilder) Build(ctx context.Context, graph plist.Value) (*Scene, error) {
	if b.Path == "" {
		return nil, errors.New("scene: no builder command configured")
	}
	input, err := plist.EncodeXML(graph)
	if err != nil {
		return nil, fmt.Errorf("scene: encode graph: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.Path, b.Args...)
	cmd.Dir = b.Dir
	if len(b.Env) > 0 {
		cmd.Env = append(cmd.Environ(), b.Env...)
	}
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("scene: %s: %w: %s", b.Path, err, msg)
		}
		return nil, fmt.Errorf("scene: %s: %w", b.Path, err)
	}
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, ErrNoScene
	}
	return FromSVG(stdout.Bytes())
}
