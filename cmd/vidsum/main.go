// Command vidsum is a client CLI for a running vidsumd daemon: it talks to
// the HTTP surface in internal/httpapi, the same surface any other client
// speaks, rather than opening the metadata store or job queue itself.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
