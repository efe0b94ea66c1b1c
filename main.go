package main

import (
	"fmt"
	"os"

	"github.com/mensylisir/xmbuild/collection"
)

func main() {
	os.Exit(run())
}

func run() int {
	// temporaries that never reached a collection are removed on the way out
	defer collection.Shutdown()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
