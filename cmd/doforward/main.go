// Command doforward runs the load balancer server: it loads a YAML
// configuration file, starts every service it describes, and serves
// until interrupted.
//
// Grounded on original_source/source/mains/ServerApp.cpp for the CLI
// shape (optional config path argument, "Exception: <code> -
// <message>" error rendering) and the teacher's
// examples/stest/server/main.go for cross-platform signal handling.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/server"
)

const defaultConfigPath = "./doforward.conf"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	s := server.New()
	if err := s.Run(configPath); err != nil {
		printException(err)
		return 1
	}

	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	s.Stop()
	return 0
}

func printException(err error) {
	if e, ok := err.(*errs.Error); ok {
		fmt.Fprintf(os.Stderr, "Exception: %s - %s\n", e.Code, e.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "Exception: %s - %s\n", errs.CodeInvalidInput, err.Error())
}
