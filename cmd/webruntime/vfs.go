// vfs.go implements the `webruntime vfs` command group: direct,
// snapshot-file-backed access to the C4 facade (ls/stat/read/write/mkdir/
// rm) plus import, which walks a host directory into the VFS tree. Each
// invocation loads the configured --snapshot file (if present), applies
// one mutation or query, and - for mutating subcommands - saves the tree
// back, so a shell session can build up VFS state across several
// invocations the way a host embedding the runtime would build it up
// across several `writeFile` calls.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ersinkoc/webruntime/pkg/cmd"
	"github.com/ersinkoc/webruntime/pkg/webruntime"
)

var vfsCommand = &cobra.Command{
	Use:   "vfs",
	Short: "Inspect and populate the in-memory VFS backing a snapshot file",
}

var vfsLsConfiguration struct {
	long bool
}

var vfsLsCommand = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory's entries",
	Args:  cobra.MaximumNArgs(1),
	Run:   cmd.Mainify(vfsLsMain),
}

func vfsLsMain(command *cobra.Command, arguments []string) error {
	path := "/"
	if len(arguments) == 1 {
		path = arguments[0]
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	entries, err := rt.VFS.Readdir(path)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !vfsLsConfiguration.long {
			fmt.Println(entry.Name)
			continue
		}
		childPath := filepath.Join(path, entry.Name)
		stat, err := rt.VFS.Lstat(childPath)
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %8s  %s\n", stat.Kind, humanize.Bytes(uint64(stat.Meta.Size)), entry.Name)
	}
	return nil
}

var vfsStatCommand = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show a node's metadata",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(vfsStatMain),
}

func vfsStatMain(command *cobra.Command, arguments []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	stat, err := rt.VFS.Lstat(arguments[0])
	if err != nil {
		return err
	}

	fmt.Printf("kind:  %s\n", stat.Kind)
	fmt.Printf("size:  %s (%d bytes)\n", humanize.Bytes(uint64(stat.Meta.Size)), stat.Meta.Size)
	fmt.Printf("mode:  %#o\n", stat.Meta.Mode)
	fmt.Printf("inode: %d\n", stat.Meta.Inode)
	fmt.Printf("mtime: %s (%s)\n", stat.Meta.Mtime.Format("2006-01-02T15:04:05Z07:00"), humanize.Time(stat.Meta.Mtime))
	return nil
}

var vfsReadCommand = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a file's contents",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(vfsReadMain),
}

func vfsReadMain(command *cobra.Command, arguments []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	data, err := rt.VFS.ReadFile(arguments[0])
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	return nil
}

var vfsWriteCommand = &cobra.Command{
	Use:   "write <path> <content>",
	Short: "Write content to a file, creating it if necessary",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(vfsWriteMain),
}

func vfsWriteMain(command *cobra.Command, arguments []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	if err := rt.VFS.WriteFile(arguments[0], []byte(arguments[1])); err != nil {
		return err
	}
	return saveSnapshot(rt.VFS)
}

var vfsMkdirConfiguration struct {
	recursive bool
}

var vfsMkdirCommand = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(vfsMkdirMain),
}

func vfsMkdirMain(command *cobra.Command, arguments []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	if err := rt.VFS.Mkdir(arguments[0], vfsMkdirConfiguration.recursive); err != nil {
		return err
	}
	return saveSnapshot(rt.VFS)
}

var vfsRmConfiguration struct {
	recursive bool
}

var vfsRmCommand = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file or (with --recursive) a directory",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(vfsRmMain),
}

func vfsRmMain(command *cobra.Command, arguments []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	stat, err := rt.VFS.Lstat(arguments[0])
	if err != nil {
		return err
	}
	if stat.IsDirectory() {
		if vfsRmConfiguration.recursive {
			err = removeTree(rt, arguments[0])
		} else {
			err = rt.VFS.Rmdir(arguments[0])
		}
	} else {
		err = rt.VFS.Unlink(arguments[0])
	}
	if err != nil {
		return err
	}
	return saveSnapshot(rt.VFS)
}

// removeTree empties path's subtree bottom-up (depth first, so a
// directory's children are always gone before Rmdir is attempted on it)
// and then removes path itself, implementing the --recursive flag that
// Rmdir alone (which rejects non-empty directories) cannot satisfy.
func removeTree(rt *webruntime.Runtime, path string) error {
	entries, err := rt.VFS.Readdir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		childPath := filepath.ToSlash(filepath.Join(path, entry.Name))
		childStat, err := rt.VFS.Lstat(childPath)
		if err != nil {
			return err
		}
		if childStat.IsDirectory() {
			if err := removeTree(rt, childPath); err != nil {
				return err
			}
		} else if err := rt.VFS.Unlink(childPath); err != nil {
			return err
		}
	}
	return rt.VFS.Rmdir(path)
}

var vfsImportCommand = &cobra.Command{
	Use:   "import <host-dir> <vfs-dir>",
	Short: "Recursively copy a host directory's regular files into the VFS",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(vfsImportMain),
}

func vfsImportMain(command *cobra.Command, arguments []string) error {
	hostDir, vfsDir := arguments[0], arguments[1]

	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	if err := rt.VFS.Mkdir(vfsDir, true); err != nil {
		return err
	}

	imported := 0
	walkErr := filepath.WalkDir(hostDir, func(hostPath string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(hostDir, hostPath)
		if err != nil {
			return err
		}
		target := filepath.ToSlash(filepath.Join(vfsDir, rel))
		if entry.IsDir() {
			if rel == "." {
				return nil
			}
			return rt.VFS.Mkdir(target, true)
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(hostPath)
		if err != nil {
			return err
		}
		if err := rt.VFS.WriteFile(target, data); err != nil {
			return err
		}
		imported++
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	fmt.Printf("imported %d file(s) into %s\n", imported, vfsDir)
	return saveSnapshot(rt.VFS)
}

func init() {
	addPersistentFlags(vfsCommand.PersistentFlags())
	vfsLsCommand.Flags().BoolVarP(&vfsLsConfiguration.long, "long", "l", false, "Show kind, size, and name")
	vfsMkdirCommand.Flags().BoolVarP(&vfsMkdirConfiguration.recursive, "recursive", "p", false, "Create intermediate directories as needed")
	vfsRmCommand.Flags().BoolVarP(&vfsRmConfiguration.recursive, "recursive", "r", false, "Remove a non-empty directory")

	vfsCommand.AddCommand(
		vfsLsCommand,
		vfsStatCommand,
		vfsReadCommand,
		vfsWriteCommand,
		vfsMkdirCommand,
		vfsRmCommand,
		vfsImportCommand,
	)
}
