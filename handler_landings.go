package main

import (
	"net/http"

	"fes/internal/handlers/landings"
	"fes/internal/workflow"
)

// landingsHandler is the shared landings handler instance.
var landingsHandler *landings.Handler

// getLandingsHandler returns the landings handler, lazily initializing if needed (for tests).
func getLandingsHandler() *landings.Handler {
	if landingsHandler == nil || landingsHandler.DB != db {
		landingsHandler = &landings.Handler{
			DB:       db,
			Docs:     docStore,
			Ref:      refService,
			Sessions: sessions,
			CSRF:     csrfTokens,
			Engine: &workflow.Engine{
				Docs:   docStore,
				Ref:    refService,
				CSRF:   csrfTokens,
				Limits: appConfig.Limits,
			},
			Hub: wsHub,
			Log: logger,
		}
	}
	return landingsHandler
}

func handleGetLandings(w http.ResponseWriter, r *http.Request, docID string) {
	getLandingsHandler().Get(w, r, docID)
}

func handlePostLandings(w http.ResponseWriter, r *http.Request, docID string) {
	getLandingsHandler().Post(w, r, docID)
}
