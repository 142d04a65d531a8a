package executor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"

	"os/exec"

	"github.com/foremanhq/foreman/internal/plan"
)

// CommandGenerator shells out to an external command once per artifact. The
// rendered prompt is passed on stdin and stdout is captured as the artifact
// content. Stderr is folded into the error on failure.
type CommandGenerator struct {
	command string
	args    []string
}

// NewCommandGenerator builds a generator around a command line. The command
// string is split on whitespace, with single or double quotes grouping an
// argument; the first token is the binary.
func NewCommandGenerator(command string) (*CommandGenerator, error) {
	fields, err := splitCommand(command)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("executor: command is required")
	}
	return &CommandGenerator{command: fields[0], args: fields[1:]}, nil
}

// splitCommand tokenizes a command line. Quotes group whitespace into one
// argument; no escape sequences or nesting beyond alternating quote kinds.
func splitCommand(command string) ([]string, error) {
	var fields []string
	var current strings.Builder
	var quote rune
	inField := false
	for _, r := range command {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inField = true
		case unicode.IsSpace(r):
			if inField {
				fields = append(fields, current.String())
				current.Reset()
				inField = false
			}
		default:
			current.WriteRune(r)
			inField = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("executor: unterminated %c quote in command %q", quote, command)
	}
	if inField {
		fields = append(fields, current.String())
	}
	return fields, nil
}

// Generate implements Generator.
func (g *CommandGenerator) Generate(ctx context.Context, item plan.ItemSpec, artifact string) (string, error) {
	cmd := exec.CommandContext(ctx, g.command, g.args...)
	cmd.Stdin = strings.NewReader(BuildPrompt(item, artifact))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%s exited with error: %w: %s", g.command, err, detail)
		}
		return "", fmt.Errorf("%s exited with error: %w", g.command, err)
	}
	return stdout.String(), nil
}

// BuildPrompt renders the instruction handed to the external capability for
// one (item, artifact) pair.
func BuildPrompt(item plan.ItemSpec, artifact string) string {
	var sb strings.Builder

	sb.WriteString("You are executing one work item from an automated plan.\n\n")
	sb.WriteString("## Work Item\n")
	sb.WriteString(fmt.Sprintf("**ID**: %s\n", item.ID))
	sb.WriteString(fmt.Sprintf("**Title**: %s\n", item.Title))
	if item.Description != "" {
		sb.WriteString(fmt.Sprintf("**Description**: %s\n", item.Description))
	}
	sb.WriteString(fmt.Sprintf("**Specialization**: %s\n", item.Specialization))
	sb.WriteString(fmt.Sprintf("**Target artifact**: %s\n\n", artifact))

	if len(item.Acceptance) > 0 {
		sb.WriteString("## Acceptance Criteria\n")
		for i, criterion := range item.Acceptance {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, criterion))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Instructions\n")
	sb.WriteString("Produce the complete content of the target artifact on stdout.\n")
	sb.WriteString("Output nothing but the artifact content.\n")

	return sb.String()
}
