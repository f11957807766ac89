// zing - zero-packet TCP handshake latency probe.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"zing/cmd"
	zerr "zing/internal/errors"
	"zing/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)

	err := cmd.Execute(ctx, os.Args[1:])
	cancel()
	if err != nil {
		log := util.NewLogger(int(util.LogQuiet))
		log.SetTimestamps(false)
		log.Error("zing: %v", err)
		os.Exit(zerr.ExitCode(err))
	}
}
