// Command articlecache runs the tiered article cache service and its maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultNewApp).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
