// Command shm-cleanup lists and removes orphaned shmlog shared-memory
// regions: ones whose owning consumer exited without calling Destroy.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/ehrlich-b/shmlog/internal/logging"
	"github.com/ehrlich-b/shmlog/internal/record"
	"github.com/ehrlich-b/shmlog/internal/registry"
	"github.com/ehrlich-b/shmlog/internal/shm"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	flagSet := flag.NewFlagSet("shm-cleanup", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	list := flagSet.BoolP("list", "l", false, "list known shared-memory regions")
	all := flagSet.BoolP("all", "a", false, "operate on every registered region instead of named ones")
	force := flagSet.BoolP("force", "f", false, "actually remove regions instead of a dry run")
	prefix := flagSet.StringP("prefix", "p", "", "restrict --all to names starting with this prefix")
	verbose := flagSet.BoolP("verbose", "v", false, "enable debug logging")

	if err := flagSet.Parse(args); err != nil {
		return 1
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Threshold = record.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))

	if *list {
		return doList(out, errOut)
	}

	names := flagSet.Args()
	if *all {
		registered, err := registry.List()
		if err != nil {
			fmt.Fprintf(errOut, "shm-cleanup: read registry: %v\n", err)
			return 1
		}
		names = filterPrefix(registered, *prefix)
	}

	if len(names) == 0 {
		fmt.Fprintln(errOut, "shm-cleanup: no region names given; pass -a/--all, -l/--list, or name... ")
		return 1
	}

	return doRemove(out, names, *force)
}

func filterPrefix(names []string, prefix string) []string {
	if prefix == "" {
		return names
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasPrefix(strings.TrimPrefix(n, "/"), strings.TrimPrefix(prefix, "/")) {
			out = append(out, n)
		}
	}
	return out
}

// doList scans /dev/shm on Linux, reads the registry on macOS, and
// reports unsupported elsewhere rather than silently returning an empty
// list.
func doList(out, errOut *os.File) int {
	switch runtime.GOOS {
	case "linux":
		names, err := shm.ScanDir()
		if err != nil {
			fmt.Fprintf(errOut, "shm-cleanup: %v\n", err)
			return 1
		}
		printNames(out, names)
		return 0
	case "darwin":
		names, err := registry.List()
		if err != nil {
			fmt.Fprintf(errOut, "shm-cleanup: %v\n", err)
			return 1
		}
		printNames(out, names)
		return 0
	default:
		fmt.Fprintln(errOut, "shm-cleanup: listing unsupported on this platform")
		return 1
	}
}

func printNames(out *os.File, names []string) {
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
}

func doRemove(out *os.File, names []string, force bool) int {
	failures := 0
	for _, name := range names {
		if !force {
			fmt.Fprintf(out, "would remove %s (pass --force to remove)\n", name)
			continue
		}
		if err := shm.Destroy(name); err != nil {
			fmt.Fprintf(out, "shm-cleanup: failed to remove %s: %v\n", name, err)
			failures++
			continue
		}
		fmt.Fprintf(out, "removed %s\n", name)
	}
	if failures > 0 {
		return 1
	}
	return 0
}
