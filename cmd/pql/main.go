// Command pql matches PQL patterns against event streams and applies CUE
// rules to stored streams.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/pql/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
