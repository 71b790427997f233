package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeContext runs the root command with args, as the binary would, and
// returns what it printed to stderr.
func executeContext(ctx context.Context, args ...string) (string, error) {
	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "inventory-api dev")
}

func TestMigrateCmd_RejectsMemoryDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	stderr, err := executeContext(context.Background(), "migrate")
	assert.ErrorContains(t, err, "mysql driver")
	assert.Contains(t, stderr, "Error: migrate needs the mysql driver")
}

func TestServeCmd_BadConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	stderr, err := executeContext(context.Background(), "serve")
	assert.ErrorContains(t, err, "unknown store driver")
	assert.Contains(t, stderr, "unknown store driver")
}
