package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"truape.co/arcmint/pipeline"

	// Storage backends register themselves with the registry.
	_ "truape.co/arcmint/storage/grpccas"
	_ "truape.co/arcmint/storage/ipfs"
	_ "truape.co/arcmint/storage/localfs"
	_ "truape.co/arcmint/storage/nftstorage"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code: 0 on success, 1 on
// a runtime failure, 2 on a usage error.
func run(args []string, out io.Writer, errOut io.Writer) int {
	cmd := newRootCmd(out, errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	if strings.HasPrefix(err.Error(), "unknown command") {
		err = &usageError{err: err}
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(errOut, "error: %v\n\n", ue.err)
		fmt.Fprint(errOut, cmd.UsageString())
		return 2
	}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		fmt.Fprintf(errOut, "error: stage %s failed: %v\n", se.Stage, se.Err)
		return 1
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
	return 1
}

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}
