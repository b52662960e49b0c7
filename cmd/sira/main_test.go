package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "create-admin"})

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("migrate"))

	down, _, err := root.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	assert.Equal(t, "down", down.Name())
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestMigrateDownRejectsBadSteps(t *testing.T) {
	_, err := run(t, "migrate", "down", "zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive integer")
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	_, err := run(t, "create-admin", "--username", "root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestCreateAdminRequiresDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	_, err := run(t, "create-admin", "--username", "root", "--email", "root@example.com", "--password", "s3cret-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}
