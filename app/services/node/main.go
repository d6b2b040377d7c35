// Command node wires the database adapter, contract registry and
// transaction processor into a Bootstrap and keeps it alive until
// signaled to stop. Block assembly and P2P replication are external
// collaborators that call Bootstrap.ProcessNext per transaction; this
// binary does not implement either.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return
		}
		fmt.Fprintln(os.Stderr, err)

		// A DB classification of corruption or a held advisory lock
		// (spec §5, §6.4) shuts the node down with its own distinct exit
		// code instead of the generic startup-failure code.
		var fatal *dbadapter.FatalError
		if errors.As(err, &fatal) {
			os.Exit(fatal.ExitCode())
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, help, err := loadConfig()
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return err
		}
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boot, err := NewBootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer boot.Close(ctx)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	boot.log.Infow("startup", "status", "node bootstrap ready")

	<-shutdown
	boot.log.Infow("shutdown", "status", "shutdown started")

	return nil
}
