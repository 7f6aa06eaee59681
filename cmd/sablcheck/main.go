package main

import (
	"errors"
	"fmt"
	"os"
)

// Version information, injected at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	root := newRootCmd(newApp(os.Stdout, os.Stderr))
	root.Version = fmt.Sprintf("%s (%s)", Version, Commit)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
