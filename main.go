package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fes/internal/auth"
	"fes/internal/config"
	"fes/internal/documents"
	"fes/internal/refdata"
	"fes/internal/response"
	"fes/internal/session"
	"fes/internal/websocket"
)

var (
	logger     zerolog.Logger
	appConfig  config.Config
	sessions   *session.Store
	csrfTokens *auth.CSRF
	docStore   *documents.Store
	refService *refdata.Service
	wsHub      *websocket.Hub
)

func main() {
	port := flag.Int("port", 9000, "HTTP port")
	dbPath := flag.String("db", "fes.db", "SQLite database path")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	var err error
	appConfig, err = config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
	}

	if err := initDB(*dbPath); err != nil {
		logger.Fatal().Err(err).Msg("db init failed")
	}
	seedDB()

	sessions = &session.Store{DB: db}
	csrfTokens = &auth.CSRF{DB: db}
	docStore = &documents.Store{DB: db}
	refService = &refdata.Service{DB: db, Log: logger}
	wsHub = websocket.NewHub(logger)

	// Expired CSRF tokens accumulate one per page render; sweep them.
	go func() {
		for {
			time.Sleep(time.Hour)
			csrfTokens.Prune()
		}
	}()

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		response.JSON(w, map[string]string{
			"error":     "You do not have access to this document",
			"supportId": r.URL.Query().Get("supportId"),
		})
	})

	// Auth routes
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogin(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogout(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		handleMe(w, r)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleWebSocket(wsHub, w, r)
	})

	// API routes - using a simple router
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Documents
		case parts[0] == "documents" && len(parts) == 1 && r.Method == "GET":
			handleListDocuments(w, r)
		case parts[0] == "documents" && len(parts) == 1 && r.Method == "POST":
			handleCreateDocument(w, r)
		case parts[0] == "documents" && len(parts) == 2 && r.Method == "GET":
			handleGetDocument(w, r, parts[1])

		// Products
		case parts[0] == "documents" && len(parts) == 3 && parts[2] == "products" && r.Method == "POST":
			handleAddProduct(w, r, parts[1])

		// Landing entry workflow
		case parts[0] == "documents" && len(parts) == 3 && parts[2] == "landings" && r.Method == "GET":
			handleGetLandings(w, r, parts[1])
		case parts[0] == "documents" && len(parts) == 3 && parts[2] == "landings" && r.Method == "POST":
			handlePostLandings(w, r, parts[1])

		// Bulk uploads
		case parts[0] == "documents" && len(parts) == 3 && parts[2] == "uploads" && r.Method == "POST":
			handleUploadFile(w, r, parts[1])
		case parts[0] == "documents" && len(parts) == 5 && parts[2] == "uploads" && parts[4] == "commit" && r.Method == "POST":
			handleCommitUpload(w, r, parts[1], parts[3])
		case parts[0] == "documents" && len(parts) == 5 && parts[2] == "uploads" && parts[4] == "report" && r.Method == "GET":
			handleUploadReport(w, r, parts[1], parts[3])

		default:
			response.Err(w, "Not found", http.StatusNotFound)
		}
	})

	handler := logging(requireAuth(mux))
	addr := fmt.Sprintf(":%d", *port)
	logger.Info().Str("addr", addr).Msg("listening")
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
