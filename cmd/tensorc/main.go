// main.go - Einstiegspunkt des tensorc CLI
package main

import (
	"context"
	"os"

	"github.com/7blacky7/tensorc/cmd"
)

func main() {
	if err := cmd.NewCLI().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
