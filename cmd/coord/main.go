package main

import (
	"context"
	"errors"
	"os"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}

	var exit *cmd.ExitCodeError
	if errors.As(err, &exit) {
		os.Exit(exit.Code)
	}
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	cli.NewErrorHandler(os.Stderr, verbose).Handle(err)
	os.Exit(1)
}
