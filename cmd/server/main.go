// cmd/server/main.go
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jmrtn/partybot/internal/auth"
	"github.com/jmrtn/partybot/internal/gateway"
	"github.com/jmrtn/partybot/internal/history"
	"github.com/jmrtn/partybot/internal/middleware"
	"github.com/jmrtn/partybot/internal/session"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	reg := session.NewRegistry()
	gw := gateway.New(reg, logger)

	if err := history.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, match journaling disabled: %v", err)
		gw.JournalFn = nil
	}
	// The history query endpoint reads Postgres directly.
	history.ConnectDB()

	mux := http.NewServeMux()

	mux.Handle("/gateway", middleware.LogMiddleware(logger)(gw.Handler()))

	// Token minting for trusted callers (the chat-platform shim). The shim
	// has already authenticated the user with the platform.
	mux.Handle("/token", middleware.LogMiddleware(logger)(http.HandlerFunc(tokenHandler)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	token, err := auth.CreateJWT(body.UserID, body.DisplayName)
	if err != nil {
		http.Error(w, "failed to mint token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}
