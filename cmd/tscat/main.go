// Command tscat manages catalogues of time-stamped events.
package main

import (
	"context"
	"os"

	"github.com/jeandet/tscat/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
