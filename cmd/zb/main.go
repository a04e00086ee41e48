// Package main is the entry point for the zb package manager.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.trai.ch/zb/cmd/zb/commands"
	"go.trai.ch/zb/internal/core/domain"
	_ "go.trai.ch/zb/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New()
	defer func() {
		if err := cli.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		}
	}()

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrInstallFailed) {
			// Per-package failures were already reported.
			return 1
		}
		// zerr prints a full error report with stack trace and metadata
		// when using %+v.
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 1
	}
	return 0
}
