package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/consolegal/crm/backend/internal/api"
	"github.com/consolegal/crm/backend/internal/auth"
	"github.com/consolegal/crm/backend/internal/config"
	"github.com/consolegal/crm/backend/internal/crypto"
	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/imap"
	syncsvc "github.com/consolegal/crm/backend/internal/sync"
	ws "github.com/consolegal/crm/backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	server := NewServer(cfg, pool)

	address := ":" + cfg.Port
	log.Printf("ConsoLegal mail backend starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer creates and returns a new HTTP handler for the mail API server.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool) http.Handler {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	useTLS := cfg.Environment != "test"
	fetcher := imap.NewLiveFetcher(cfg.IMAPAddress(), useTLS)
	syncService := syncsvc.NewService(dbPool, encryptor, fetcher)
	wsHub := ws.NewHub(10)

	syncHandler := api.NewSyncHandler(dbPool, syncService, wsHub)
	messagesHandler := api.NewMessagesHandler(dbPool)
	sendHandler := api.NewSendHandler(dbPool, encryptor, cfg.SMTPAddress())
	mailboxHandler := api.NewMailboxHandler(dbPool, encryptor)
	wsHandler := api.NewWebSocketHandler(dbPool, wsHub)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/mail/sync", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		syncHandler.Sync(w, r)
	})))
	mux.Handle("/api/v1/mail/messages", auth.RequireAuth(http.HandlerFunc(messagesHandler.GetMessages)))
	mux.Handle("/api/v1/mail/send", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sendHandler.Send(w, r)
	})))
	mux.Handle("/api/v1/mailbox", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			mailboxHandler.GetMailbox(w, r)
		case http.MethodPost:
			mailboxHandler.PostMailbox(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))
	// WebSocket handler handles its own authentication via query parameter
	// (since browsers can't set headers on WebSocket connections).
	mux.Handle("/api/v1/ws", http.HandlerFunc(wsHandler.Handle))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "ConsoLegal mail API is running")
}
