// Command docnumctl administers a docnum database: migrations, fixtures,
// template checks, manual generation and audit inspection.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
