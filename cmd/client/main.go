package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat_relay/internal/config"
	"chat_relay/internal/service/app"
)

func main() {
	// os.Args[1] is our user id, os.Args[2] the person we talk to
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: client <userID> <recipientID>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := app.NewApp(cfg.Addr)

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		a.Stop()
	}()

	// the UI owns the terminal, logging stays on the no-op default
	if err := a.Run(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a.Stop()
}
