package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("1.2.3")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cybertrace 1.2.3")
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCommand("dev")
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "analyze")
	assert.Contains(t, names, "match")
	assert.Contains(t, names, "chat")
	assert.Contains(t, names, "version")
}

func TestAnalyze_RequiresComplaint(t *testing.T) {
	_, err := execute(t, "analyze")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAnalyze_MissingComplaintFile(t *testing.T) {
	_, err := execute(t, "analyze", "--complaint-file", "/nonexistent/complaint.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
