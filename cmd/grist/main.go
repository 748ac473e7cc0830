// cmd/grist is the command-line interface: single and batch extraction,
// duplicate scanning, interactive merge review, undo, registry
// administration, stats, and backups.
package main

import (
	"os"

	"github.com/mgraessle/grist/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
