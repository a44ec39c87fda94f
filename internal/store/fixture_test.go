package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixture = `
users:
  - id: u1
    name: Alice
    portrait: http://img/a.png
  - id: u2
    name: Bob
groups:
  - id: g1
    name: Team
`

func TestLoadFixtureAndSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixture), 0o644))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	assert.Equal(t, "http://img/a.png", f.Users[0].PortraitURI)

	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, Seed(ctx, s, f))

	bob, err := s.UserInfoByID(ctx, "u2")
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.Equal(t, "Bob", bob.Name)

	groups, _ := s.GroupMap(ctx)
	assert.Equal(t, "Team", groups["g1"].Name)
}

func TestParseFixture_MissingID(t *testing.T) {
	_, err := ParseFixture([]byte("users:\n  - name: NoID\n"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("groups:\n  - name: NoID\n"))
	assert.Error(t, err)
}

func TestParseFixture_Malformed(t *testing.T) {
	_, err := ParseFixture([]byte("users: [unterminated"))
	assert.Error(t, err)
}

func TestLoadFixture_MissingFile(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
