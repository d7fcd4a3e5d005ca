// cmd/historian/main.go runs the standalone historian: it drains finished
// matches from the Redis queue and persists them to Postgres.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/jmrtn/partybot/internal/history"
)

func main() {
	h := history.NewHistorian()
	go h.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	h.Stop()
	log.Println("Historian shutdown complete.")
}
