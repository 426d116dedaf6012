package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/ersinkoc/webruntime/pkg/kernel"
	"github.com/ersinkoc/webruntime/pkg/logging"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
	"github.com/ersinkoc/webruntime/pkg/webruntime"
)

// persistentConfiguration holds the flags shared by every subcommand that
// needs to build a Runtime or touch its VFS, grounded on the teacher's
// habit of a single persistent flag set threaded through cmd/mutagen's
// subcommands (e.g. daemon connection flags).
var persistentConfiguration struct {
	snapshot string
	dotenv   string
	override string
	debug    bool
	logLevel string
}

func addPersistentFlags(flags *pflag.FlagSet) {
	flags.StringVar(&persistentConfiguration.snapshot, "snapshot", "webruntime.vfs", "Path to the VFS snapshot file to load from and save to")
	flags.StringVar(&persistentConfiguration.dotenv, "dotenv", "", "Path to a .env file to seed the kernel's environment")
	flags.StringVar(&persistentConfiguration.override, "config", "", "Path to a YAML file overriding cwd/mode")
	flags.BoolVar(&persistentConfiguration.debug, "debug", false, "Shorthand for --log-level debug")
	flags.StringVar(&persistentConfiguration.logLevel, "log-level", "info", "Log level: disabled, error, warn, info, debug, trace")
}

// buildRuntime constructs a Runtime from the persistent flags, loading an
// existing snapshot file into its VFS if one is present. There is no
// script engine wired in (spec §1: sandbox executors are external
// collaborators supplied by the host embedding this core), so loading a
// non-JSON, non-builtin module reports NotSupported rather than silently
// doing nothing.
func buildRuntime() (*webruntime.Runtime, error) {
	cfg, err := kernel.LoadConfig(persistentConfiguration.dotenv, persistentConfiguration.override)
	if err != nil {
		return nil, err
	}

	level, ok := logging.NameToLevel(persistentConfiguration.logLevel)
	if !ok {
		return nil, rterror.New(rterror.KindInvalidArgument, "unrecognized --log-level value", persistentConfiguration.logLevel)
	}
	if persistentConfiguration.debug && level < logging.LevelDebug {
		level = logging.LevelDebug
	}
	logger := logging.NewRoot(level)

	rt, err := webruntime.New(webruntime.Options{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	if persistentConfiguration.snapshot != "" {
		if data, err := os.ReadFile(persistentConfiguration.snapshot); err == nil {
			if err := rt.VFS.FromSnapshot(data); err != nil {
				return nil, rterror.Wrap(rterror.KindFSError, err, persistentConfiguration.snapshot)
			}
		} else if !os.IsNotExist(err) {
			return nil, rterror.Wrap(rterror.KindFSError, err, persistentConfiguration.snapshot)
		}
	}

	return rt, nil
}

// saveSnapshot persists fs's current tree back to the configured
// snapshot file, if one is configured, so that state set up by one
// invocation (e.g. `vfs write`) is visible to the next (e.g. `run`).
func saveSnapshot(fs *vfs.VFS) error {
	if persistentConfiguration.snapshot == "" {
		return nil
	}
	data, err := fs.ToSnapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(persistentConfiguration.snapshot, data, 0644)
}
