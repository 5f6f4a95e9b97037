package main

import (
	"net/http"

	"fes/internal/handlers/uploads"
	"fes/internal/upload"
)

// uploadsHandler is the shared uploads handler instance.
var uploadsHandler *uploads.Handler

// getUploadsHandler returns the uploads handler, lazily initializing if needed (for tests).
func getUploadsHandler() *uploads.Handler {
	if uploadsHandler == nil || uploadsHandler.DB != db {
		uploadsHandler = &uploads.Handler{
			DB:       db,
			Docs:     docStore,
			Sessions: sessions,
			CSRF:     csrfTokens,
			Validator: &upload.Validator{
				Ref:    refService,
				Limits: appConfig.Limits,
			},
			Hub: wsHub,
			Log: logger,
		}
	}
	return uploadsHandler
}

func handleUploadFile(w http.ResponseWriter, r *http.Request, docID string) {
	getUploadsHandler().Post(w, r, docID)
}

func handleCommitUpload(w http.ResponseWriter, r *http.Request, docID, batchID string) {
	getUploadsHandler().Commit(w, r, docID, batchID)
}

func handleUploadReport(w http.ResponseWriter, r *http.Request, docID, batchID string) {
	getUploadsHandler().Report(w, r, docID, batchID)
}
