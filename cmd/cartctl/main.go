// cmd/cartctl/main.go
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(openConfiguredStores).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cartctl:", err)
		os.Exit(1)
	}
}
