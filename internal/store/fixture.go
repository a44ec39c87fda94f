package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"imkit/internal/domain"
)

// Fixture is a YAML seed for the directory:
//
//	users:
//	  - {id: u1, name: Alice, portrait: http://...}
//	groups:
//	  - {id: g1, name: Team}
type Fixture struct {
	Users  []domain.UserInfo `yaml:"users"`
	Groups []domain.Group    `yaml:"groups"`
}

func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, u := range f.Users {
		if u.UserID == "" {
			return nil, fmt.Errorf("parse fixture: users[%d] has no id", i)
		}
	}
	for i, g := range f.Groups {
		if g.ID == "" {
			return nil, fmt.Errorf("parse fixture: groups[%d] has no id", i)
		}
	}
	return &f, nil
}

// Seed writes every fixture record to w.
func Seed(ctx context.Context, w Writer, f *Fixture) error {
	for _, u := range f.Users {
		if err := w.PutUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.UserID, err)
		}
	}
	for _, g := range f.Groups {
		if err := w.PutGroup(ctx, g); err != nil {
			return fmt.Errorf("seed group %s: %w", g.ID, err)
		}
	}
	return nil
}
