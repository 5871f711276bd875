// Command bridgectl calls an appbridge host from the command line.
//
// Usage:
//
//	bridgectl installed org.mozilla.firefox
//	bridgectl open org.mozilla.firefox
//	bridgectl call isAppInstalled packageName:=null
//	bridgectl apps
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
