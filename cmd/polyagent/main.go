// Command polyagent drives a GitHub issue through the full agent
// pipeline and reports a truthful two-section summary, exiting 0 when
// every requested issue completed, 1 on fatal configuration error, and 2
// when the pipeline ran but did not reach a complete state.
package main

import (
	"os"

	"github.com/lucasnoah/polyagent/internal/cli"
)

var buildVersion = "dev"

func main() {
	cli.SetVersion(buildVersion)
	os.Exit(cli.Execute())
}
