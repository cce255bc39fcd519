package documents

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/sirupsen/logrus"
)

// HandleGet returns the persisted document of a room. It reads straight
// from the store and does not create the document.
func HandleGet(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomKey := chi.URLParam(r, "roomKey")
		if roomKey == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Room key is required"})
			return
		}

		doc, err := store.Get(r.Context(), roomKey)
		if errors.Is(err, core.ErrDocumentNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Document not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error": err,
				"room":  roomKey,
			}).Error("Failed to load document")
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, map[string]string{"error": "Failed to load document"})
			return
		}

		render.JSON(w, r, doc)
	}
}
