// Command fleetdb provisions the fleet database and runs its reports and
// data tools.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := execute(ctx, a, newRootCmd(a)); err != nil {
		log.WithError(err).Error("fleetdb failed")
		stop()
		os.Exit(1)
	}
}
