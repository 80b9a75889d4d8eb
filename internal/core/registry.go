// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/toeirei/keymaster-remote/internal/config"
	"github.com/toeirei/keymaster-remote/internal/credentials"
	"github.com/toeirei/keymaster-remote/internal/cryptocore"
	"github.com/toeirei/keymaster-remote/internal/directory"
	"github.com/toeirei/keymaster-remote/internal/filesystem"
	"github.com/toeirei/keymaster-remote/internal/logging"
	"github.com/toeirei/keymaster-remote/internal/platform"
	"github.com/toeirei/keymaster-remote/internal/plugin"
	"github.com/toeirei/keymaster-remote/internal/usergroups"
)

var (
	// ErrAlreadyConstructed is the panic value of a second New while a Core
	// is live.
	ErrAlreadyConstructed = errors.New("core: registry already constructed")
	// ErrNotConstructed is the panic value of Instance outside a Core's
	// lifetime.
	ErrNotConstructed = errors.New("core: registry not constructed")
)

var (
	instanceMu sync.Mutex
	instance   *Core
)

// SubsystemError reports which subsystem failed during New.
type SubsystemError struct {
	Subsystem string
	Err       error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("core: %s: %v", e.Subsystem, e.Err)
}

func (e *SubsystemError) Unwrap() error { return e.Err }

// Options configure New.
type Options struct {
	// Component names the running program. It prefixes log lines and selects
	// the components.<name> configuration section.
	Component string
	// ConfigFile is an explicit configuration file.
	ConfigFile string
	// ConfigSearchPaths replaces the default configuration search paths.
	ConfigSearchPaths []string
	// Flags are bound over file and environment configuration.
	Flags *pflag.FlagSet
	// Plugins are registered after the built-in plugins.
	Plugins []plugin.Plugin
	// LogonPrompter supplies credentials for logon authentication.
	LogonPrompter LogonPrompter
	// Env looks up environment variables. Defaults to os.LookupEnv.
	Env func(key string) (string, bool)
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Core owns every subsystem. Accessors are plain reads of fields that never
// change after New returns.
type Core struct {
	component string
	env       func(string) (string, bool)
	prompter  LogonPrompter

	logger      *logging.Logger
	fs          *filesystem.Filesystem
	config      *config.Store
	crypto      *cryptocore.Core
	credentials *credentials.Credentials
	plugins     *plugin.Manager
	platforms   *platform.Manager
	platform    platform.Platform
	userGroups  *usergroups.Manager
	directory   *directory.Manager

	appName string

	authMu    sync.RWMutex
	authState State
	keyName   string

	closers   []namedCloser
	closeOnce sync.Once
	closeErr  error
}

var logEnvKeys = []string{"KMREMOTE_LOG_LEVEL", "KMREMOTE_LOG_FILE", "KMREMOTE_LOG_FORMAT"}

// New constructs every subsystem and publishes the Core. On failure the
// subsystems built so far are closed in reverse order and a *SubsystemError
// is returned. New panics with ErrAlreadyConstructed while another Core is
// live.
func New(opts Options) (*Core, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		panic(ErrAlreadyConstructed)
	}

	c := &Core{
		component: opts.Component,
		env:       opts.Env,
		prompter:  opts.LogonPrompter,
	}
	if c.env == nil {
		c.env = os.LookupEnv
	}
	if err := c.construct(context.Background(), opts); err != nil {
		if cerr := c.closeAll(); cerr != nil {
			logging.Warnf("cleanup after failed startup: %v", cerr)
		}
		return nil, err
	}

	instance = c
	logging.Infof("%s ready (platform %s, %d plugins)", c.appName, c.platform.Name(), len(c.plugins.Plugins()))
	return c, nil
}

func (c *Core) construct(ctx context.Context, opts Options) error {
	fail := func(subsystem string, err error) error {
		return &SubsystemError{Subsystem: subsystem, Err: err}
	}

	environ := make(map[string]string)
	for _, k := range logEnvKeys {
		if v, ok := c.env(k); ok {
			environ[k] = v
		}
	}
	settings, err := logging.SettingsFromEnv(environ)
	if err != nil {
		return fail("logger", err)
	}
	c.logger, err = logging.New(c.component, settings)
	if err != nil {
		return fail("logger", err)
	}
	c.own("logger", c.logger)

	c.fs = filesystem.New()

	c.config, err = config.Open(config.Options{
		Component:   c.component,
		File:        opts.ConfigFile,
		SearchPaths: opts.ConfigSearchPaths,
		Flags:       opts.Flags,
	})
	if err != nil {
		return fail("config", err)
	}
	c.fs.BindKeyDirs(c.config)
	cfg := c.config.Current()

	c.appName = DefaultApplicationName
	if name := strings.TrimSpace(cfg.Branding.ApplicationName); name != "" {
		c.appName = name
	}

	c.crypto = cryptocore.New()

	c.credentials = credentials.New(c.crypto)
	c.own("credentials", c.credentials)

	c.plugins = plugin.NewManager(cfg.Plugins.Disabled)
	c.own("plugins", c.plugins)
	builtins := append(platform.Builtins(), directory.NewSQL())
	if err := c.plugins.Discover(append(builtins, opts.Plugins...)...); err != nil {
		return fail("plugins", err)
	}

	c.platforms = platform.NewManager(c.plugins)
	c.platform, err = c.platforms.Resolve(cfg.Platform.Plugin)
	if err != nil {
		return fail("platform", err)
	}

	c.userGroups = usergroups.NewManager(c.plugins, cfg.UserGroups.Backend,
		usergroups.NewDefault(c.platform.UserFunctions()), cfg.UserGroups.CacheTTL)

	dsn := cfg.Directory.DSN
	if strings.EqualFold(cfg.Directory.Type, "sqlite") {
		dsn = c.fs.ExpandPath(dsn)
	}
	c.directory, err = directory.NewManager(ctx, c.plugins, directory.Settings{
		Plugin: cfg.Directory.Plugin,
		Type:   cfg.Directory.Type,
		DSN:    dsn,
	})
	if err != nil {
		return fail("directory", err)
	}
	c.own("directory", c.directory)
	return nil
}

func (c *Core) own(name string, closer io.Closer) {
	c.closers = append(c.closers, namedCloser{name: name, c: closer})
}

func (c *Core) closeAll() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.closers[i].name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Instance returns the live Core. It panics with ErrNotConstructed before New
// succeeds or after Close.
func Instance() *Core {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		panic(ErrNotConstructed)
	}
	return instance
}

// Close tears the subsystems down in reverse construction order and
// unpublishes the Core. Further calls return the first result.
func (c *Core) Close() error {
	c.closeOnce.Do(func() {
		instanceMu.Lock()
		if instance == c {
			instance = nil
		}
		instanceMu.Unlock()
		c.closeErr = c.closeAll()
	})
	return c.closeErr
}

func (c *Core) Component() string                                   { return c.component }
func (c *Core) Logger() *logging.Logger                             { return c.logger }
func (c *Core) Filesystem() *filesystem.Filesystem                  { return c.fs }
func (c *Core) Config() *config.Store                               { return c.config }
func (c *Core) CryptoCore() *cryptocore.Core                        { return c.crypto }
func (c *Core) AuthenticationCredentials() *credentials.Credentials { return c.credentials }
func (c *Core) PluginManager() *plugin.Manager                      { return c.plugins }
func (c *Core) PlatformPluginManager() *platform.Manager            { return c.platforms }
func (c *Core) Platform() platform.Platform                         { return c.platform }
func (c *Core) UserGroupsBackendManager() *usergroups.Manager       { return c.userGroups }
func (c *Core) NetworkObjectDirectoryManager() *directory.Manager   { return c.directory }
