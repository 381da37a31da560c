// Command kassist is a conversational shell assistant backed by a local LLM.
package main

import (
	"os"

	"github.com/kassist/kassist/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
