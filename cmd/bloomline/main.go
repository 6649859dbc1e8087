// Command bloomline reads lines from stdin and writes to stdout only
// those lines not previously seen, per the flags described by --help.
package main

import (
	"os"

	"github.com/kenorb-dev/bloomline/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
