// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config is the configuration store. It layers defaults, the
// kmremote.yaml file, KMREMOTE_* environment variables and command-line flags
// with Viper, and exposes the result as a typed Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys.
const EnvPrefix = "kmremote"

// Config is the typed view of the configuration store.
type Config struct {
	Language       string               `mapstructure:"language" yaml:"language"`
	Branding       BrandingConfig       `mapstructure:"branding" yaml:"branding"`
	Authentication AuthenticationConfig `mapstructure:"authentication" yaml:"authentication"`
	Plugins        PluginsConfig        `mapstructure:"plugins" yaml:"plugins"`
	Platform       PlatformConfig       `mapstructure:"platform" yaml:"platform"`
	UserGroups     UserGroupsConfig     `mapstructure:"usergroups" yaml:"usergroups"`
	Directory      DirectoryConfig      `mapstructure:"directory" yaml:"directory"`
}

// BrandingConfig overrides cosmetic properties.
type BrandingConfig struct {
	ApplicationName string `mapstructure:"applicationname" yaml:"applicationName"`
	Icon            string `mapstructure:"icon" yaml:"icon"`
}

// AuthenticationConfig locates key files and lists accepted methods.
type AuthenticationConfig struct {
	PrivateKeyBaseDir string `mapstructure:"privatekeybasedir" yaml:"privateKeyBaseDir"`
	PublicKeyBaseDir  string `mapstructure:"publickeybasedir" yaml:"publicKeyBaseDir"`
	Methods           string `mapstructure:"methods" yaml:"methods"`
}

// PluginsConfig lists plugins (by name or UID) that must not be loaded.
type PluginsConfig struct {
	Disabled []string `mapstructure:"disabled" yaml:"disabled"`
}

// PlatformConfig selects the platform plugin. Empty means auto-detect.
type PlatformConfig struct {
	Plugin string `mapstructure:"plugin" yaml:"plugin"`
}

// UserGroupsConfig selects the user groups backend.
type UserGroupsConfig struct {
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	CacheTTL time.Duration `mapstructure:"cachettl" yaml:"cacheTTL"`
}

// DirectoryConfig selects the network object directory and its storage.
type DirectoryConfig struct {
	Plugin string `mapstructure:"plugin" yaml:"plugin"`
	Type   string `mapstructure:"type" yaml:"type"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// Defaults returns the built-in default values keyed by config key.
func Defaults() map[string]any {
	return map[string]any{
		"language":                         "en",
		"branding.applicationName":         "",
		"branding.icon":                    "",
		"authentication.privateKeyBaseDir": "%GLOBALAPPDATA%/keys/private",
		"authentication.publicKeyBaseDir":  "%GLOBALAPPDATA%/keys/public",
		"authentication.methods":           "keyfile,logon",
		"plugins.disabled":                 []string{},
		"platform.plugin":                  "",
		"usergroups.backend":               "default",
		"usergroups.cacheTTL":              "5m",
		"directory.plugin":                 "builtin",
		"directory.type":                   "sqlite",
		"directory.dsn":                    "%APPDATA%/directory.db",
	}
}

// Path returns the full path of the user or system configuration file.
func Path(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "KeymasterRemote")
		default:
			configDir = "/etc/kmremote"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "kmremote")
	}
	return filepath.Join(configDir, "kmremote.yaml"), nil
}

// Options controls how Open locates and layers configuration.
type Options struct {
	// Component selects the components.<name> section merged over the root.
	Component string
	// File is an explicit config file. A missing explicit file is an error.
	File string
	// SearchPaths replaces the default user, system and cwd search paths.
	SearchPaths []string
	// Flags are bound last and take precedence over file and env.
	Flags *pflag.FlagSet
}

// Store is the configuration subsystem.
type Store struct {
	mu        sync.RWMutex
	v         *viper.Viper
	cfg       Config
	component string
	file      string
}

// Open builds a Store from defaults, file, environment and flags.
func Open(opts Options) (*Store, error) {
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("kmremote")
	v.SetConfigType("yaml")

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		paths := opts.SearchPaths
		if paths == nil {
			if p, err := Path(false); err == nil {
				paths = append(paths, filepath.Dir(p))
			}
			if p, err := Path(true); err == nil {
				paths = append(paths, filepath.Dir(p))
			}
			paths = append(paths, ".")
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// No file anywhere is fine; the store runs on defaults.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	s := &Store{v: v, component: opts.Component, file: v.ConfigFileUsed()}
	if opts.File != "" {
		s.file = opts.File
	}
	if err := s.mergeComponent(); err != nil {
		return nil, err
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// mergeComponent merges components.<component> over the root keys.
func (s *Store) mergeComponent() error {
	if s.component == "" {
		return nil
	}
	key := "components." + strings.ToLower(s.component)
	if !s.v.IsSet(key) {
		return nil
	}
	if err := s.v.MergeConfigMap(s.v.GetStringMap(key)); err != nil {
		return fmt.Errorf("merge %s: %w", key, err)
	}
	return nil
}

func (s *Store) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Store) reloadLocked() error {
	var c Config
	if err := s.v.Unmarshal(&c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	s.cfg = c
	return nil
}

// Current returns a copy of the typed configuration.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.cfg
	c.Plugins.Disabled = append([]string(nil), s.cfg.Plugins.Disabled...)
	return c
}

// File returns the config file in use, or the explicit target, or "".
func (s *Store) File() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file
}

// Get returns the raw value of key.
func (s *Store) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.Get(key)
}

// Set overrides key in memory. Call Save to persist it.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return s.reloadLocked()
}

// Values returns every key with its effective value.
func (s *Store) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllSettings()
}

// PrivateKeyBaseDir implements filesystem.KeyDirs.
func (s *Store) PrivateKeyBaseDir() string {
	return s.Current().Authentication.PrivateKeyBaseDir
}

// PublicKeyBaseDir implements filesystem.KeyDirs.
func (s *Store) PublicKeyBaseDir() string {
	return s.Current().Authentication.PublicKeyBaseDir
}
