// Command termai is a terminal AI assistant: sessions, branches, project
// context discovery, and redaction live on disk next to your project.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kyco/termai/cmd/termai/cli"
	"github.com/kyco/termai/internal/coreerr"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ce *coreerr.Error
		if errors.As(err, &ce) {
			os.Exit(ce.ExitCode())
		}
		os.Exit(1)
	}
}
