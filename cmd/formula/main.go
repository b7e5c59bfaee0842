// Command formula runs the symbolic execution engine over a compiled IR
// file, summarizing one function (analyze) or every function in a
// contract (batch) as a post-state formula over its state variables.
package main

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
)

func main() {
	app := NewCli()
	if err := app.Run(os.Args); err != nil {
		log.Crit("formula exited with error", "err", err)
	}
}
