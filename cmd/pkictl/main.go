// Command pkictl computes PKI figures from a ticket spreadsheet without a
// database, for checking an export before it is imported.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
