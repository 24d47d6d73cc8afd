package handler

import (
	"net/http"

	"github.com/Gahroot/the-tribunal-sub000/internal/media"
	"github.com/gorilla/mux"
)

// RegisterRoutes wires the call-control webhook and the media WebSocket
// endpoint onto router. webhookHandler also serves as the media.SessionFactory.
func RegisterRoutes(router *mux.Router, webhookHandler *WebhookHandler) {
	router.HandleFunc("/voice/webhook", webhookHandler.ServeWebhook).Methods(http.MethodPost)

	mediaHandler := media.NewHandler(webhookHandler).WithTokenVerifier(webhookHandler)
	mediaHandler.Register(router)

	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
