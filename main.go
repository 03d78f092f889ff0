package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rt := NewRuntime(os.Stdin, os.Stdout, os.Stderr)
	rootCmd := SetupCommands(rt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if cerr := rt.Close(closeCtx); cerr != nil {
		fmt.Fprintln(os.Stderr, "Error:", cerr)
	}
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
