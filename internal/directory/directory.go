// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package directory provides the network object directory: the locations and
// hosts an operator can administer. Directories are plugins; the built-in one
// stores objects in a SQL database through bun.
package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/toeirei/keymaster-remote/internal/plugin"
)

var (
	// ErrNotFound is returned when no object has the requested UID.
	ErrNotFound = errors.New("directory: object not found")
	// ErrDuplicate is returned when an object with the same UID or the same
	// name below the same parent exists.
	ErrDuplicate = errors.New("directory: duplicate object")
	// ErrInvalidObject is returned for objects that fail validation.
	ErrInvalidObject = errors.New("directory: invalid object")
	// ErrNoDirectory is returned when the configured plugin is unavailable.
	ErrNoDirectory = errors.New("directory: no usable directory plugin")
)

// ObjectType classifies network objects.
type ObjectType string

const (
	Location ObjectType = "location"
	Host     ObjectType = "host"
)

// ParseObjectType accepts the type names case-insensitively.
func ParseObjectType(s string) (ObjectType, error) {
	switch t := ObjectType(strings.ToLower(strings.TrimSpace(s))); t {
	case Location, Host:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidObject, s)
}

// NetworkObject is an entry of the directory. Objects with a nil ParentUID
// sit at the top level.
type NetworkObject struct {
	bun.BaseModel `bun:"table:network_objects"`
	UID           uuid.UUID  `bun:"uid,pk,type:varchar(36)"`
	Type          ObjectType `bun:"type,notnull"`
	Name          string     `bun:"name,notnull"`
	HostAddress   string     `bun:"host_address"`
	MacAddress    string     `bun:"mac_address"`
	ParentUID     uuid.UUID  `bun:"parent_uid,type:varchar(36)"`
}

func (o NetworkObject) validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidObject)
	}
	switch o.Type {
	case Location:
		if o.HostAddress != "" {
			return fmt.Errorf("%w: location %q has a host address", ErrInvalidObject, o.Name)
		}
	case Host:
		if o.HostAddress == "" {
			return fmt.Errorf("%w: host %q has no address", ErrInvalidObject, o.Name)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidObject, o.Type)
	}
	return nil
}

// Directory is implemented by network object directory plugins.
type Directory interface {
	plugin.Plugin
	// Objects lists the children of parent; uuid.Nil lists the top level.
	Objects(ctx context.Context, parent uuid.UUID) ([]NetworkObject, error)
	// Add stores o and returns it with its UID assigned.
	Add(ctx context.Context, o NetworkObject) (NetworkObject, error)
	// Remove deletes the object and everything below it.
	Remove(ctx context.Context, uid uuid.UUID) error
	Find(ctx context.Context, uid uuid.UUID) (NetworkObject, error)
}

// Settings select and configure the directory.
type Settings struct {
	Plugin string
	Type   string
	DSN    string
}

// Opener is implemented by directories that need a connection.
type Opener interface {
	Open(ctx context.Context, s Settings) error
}

// Manager is the network object directory manager subsystem.
type Manager struct {
	dir Directory
}

// NewManager resolves the directory plugin named in s and opens it.
func NewManager(ctx context.Context, plugins *plugin.Manager, s Settings) (*Manager, error) {
	for _, d := range plugin.Of[Directory](plugins) {
		if !strings.EqualFold(d.Name(), s.Plugin) {
			continue
		}
		if o, ok := d.(Opener); ok {
			if err := o.Open(ctx, s); err != nil {
				return nil, fmt.Errorf("open directory %s: %w", d.Name(), err)
			}
		}
		return &Manager{dir: d}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoDirectory, s.Plugin)
}

// Directory returns the active directory.
func (m *Manager) Directory() Directory { return m.dir }

// Objects lists the children of parent.
func (m *Manager) Objects(ctx context.Context, parent uuid.UUID) ([]NetworkObject, error) {
	return m.dir.Objects(ctx, parent)
}

// Add validates and stores o.
func (m *Manager) Add(ctx context.Context, o NetworkObject) (NetworkObject, error) {
	if err := o.validate(); err != nil {
		return NetworkObject{}, err
	}
	if o.ParentUID != uuid.Nil {
		parent, err := m.dir.Find(ctx, o.ParentUID)
		if err != nil {
			return NetworkObject{}, fmt.Errorf("parent %s: %w", o.ParentUID, err)
		}
		if parent.Type != Location {
			return NetworkObject{}, fmt.Errorf("%w: parent %q is not a location", ErrInvalidObject, parent.Name)
		}
	}
	return m.dir.Add(ctx, o)
}

// Remove deletes uid and its children.
func (m *Manager) Remove(ctx context.Context, uid uuid.UUID) error {
	return m.dir.Remove(ctx, uid)
}

// Find returns the object with uid.
func (m *Manager) Find(ctx context.Context, uid uuid.UUID) (NetworkObject, error) {
	return m.dir.Find(ctx, uid)
}

// Close closes the active directory.
func (m *Manager) Close() error {
	if c, ok := m.dir.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
