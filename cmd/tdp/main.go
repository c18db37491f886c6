package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tosit-io/tdp/internal/logger"
)

func main() {
	appLogger, err := logger.New(logger.Options{
		Level:         "info",
		HumanReadable: true,
		Component:     "cli",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	app := &AppContext{
		Logger: appLogger,
		flags:  &rootFlags{},
	}

	rootCmd := newRootCmd(app)
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
