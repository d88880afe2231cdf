package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/migrations"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  []int
	version uint
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = append(f.forced, v)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, nil }

func quietLogger() *logging.Logger { return logging.NewWithWriter("error", &bytes.Buffer{}) }

func TestRunCommands(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange, version: 4}

	require.NoError(t, run(m, nil, quietLogger()))
	require.NoError(t, run(m, []string{"down"}, quietLogger()))
	require.NoError(t, run(m, []string{"down", "2"}, quietLogger()))
	require.NoError(t, run(m, []string{"force", "3"}, quietLogger()))
	require.NoError(t, run(m, []string{"version"}, quietLogger()))

	assert.Equal(t, []int{-1, -2}, m.steps)
	assert.Equal(t, []int{3}, m.forced)
}

func TestRunRejectsBadArguments(t *testing.T) {
	m := &fakeMigrator{}
	assert.Error(t, run(m, []string{"down", "zero"}, quietLogger()))
	assert.Error(t, run(m, []string{"force"}, quietLogger()))
	assert.Error(t, run(m, []string{"sideways"}, quietLogger()))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := appmigrations.FS.ReadDir(".")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}
