package main

import (
	"net/http"

	"fes/internal/handlers/docs"
)

// docsHandler is the shared documents handler instance.
var docsHandler *docs.Handler

// getDocsHandler returns the documents handler, lazily initializing if needed (for tests).
func getDocsHandler() *docs.Handler {
	if docsHandler == nil || docsHandler.DB != db {
		docsHandler = &docs.Handler{
			DB:   db,
			Docs: docStore,
			Hub:  wsHub,
			Log:  logger,
		}
	}
	return docsHandler
}

func handleListDocuments(w http.ResponseWriter, r *http.Request) {
	getDocsHandler().List(w, r)
}

func handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	getDocsHandler().Create(w, r)
}

func handleGetDocument(w http.ResponseWriter, r *http.Request, docID string) {
	getDocsHandler().Get(w, r, docID)
}

func handleAddProduct(w http.ResponseWriter, r *http.Request, docID string) {
	getDocsHandler().AddProduct(w, r, docID)
}
