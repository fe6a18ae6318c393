package api

import (
	"crypto/subtle"
	"net/http"

	"flixd/handlers"

	"github.com/gorilla/mux"
)

// pinMiddleware guards the API with the instance PIN. Clients send it in
// the X-PIN header; an empty configured PIN disables the check.
func pinMiddleware(pin string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if pin != "" {
				got := r.Header.Get("X-PIN")
				if subtle.ConstantTimeCompare([]byte(got), []byte(pin)) != 1 {
					http.Error(w, "invalid pin", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	pin string,
	settingsHandler *handlers.SettingsHandler,
	metadataHandler *handlers.MetadataHandler,
	playbackHandler *handlers.PlaybackHandler,
	historyHandler *handlers.HistoryHandler,
	imageHandler *handlers.ImageHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(pinMiddleware(pin))

	api.HandleFunc("/version", handlers.GetVersion).Methods(http.MethodGet)

	// Metadata
	api.HandleFunc("/homepage", metadataHandler.Homepage).Methods(http.MethodGet)
	api.HandleFunc("/search", metadataHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/metadata/movies/{id}", metadataHandler.MovieDetails).Methods(http.MethodGet)
	api.HandleFunc("/metadata/series/{id}", metadataHandler.SeriesDetails).Methods(http.MethodGet)
	api.HandleFunc("/metadata/series/{id}/season/{season}", metadataHandler.SeasonDetails).Methods(http.MethodGet)
	api.HandleFunc("/metadata/{mediaType}/{id}/external-ids", metadataHandler.ExternalIDs).Methods(http.MethodGet)
	api.HandleFunc("/metadata/{mediaType}/{id}/recommendations", metadataHandler.Recommendations).Methods(http.MethodGet)
	api.HandleFunc("/discover", metadataHandler.Discover).Methods(http.MethodGet)
	api.HandleFunc("/recent", metadataHandler.Recent).Methods(http.MethodGet)
	api.HandleFunc("/surprise", metadataHandler.Surprise).Methods(http.MethodGet)

	// Playback
	api.HandleFunc("/playback/resolve", playbackHandler.Resolve).Methods(http.MethodPost)
	api.HandleFunc("/playback/embed", playbackHandler.Embed).Methods(http.MethodPost)
	api.HandleFunc("/playback/providers", playbackHandler.Providers).Methods(http.MethodGet)
	api.HandleFunc("/playback/providers/next", playbackHandler.NextProvider).Methods(http.MethodGet)
	api.HandleFunc("/playback/sessions", playbackHandler.StartSession).Methods(http.MethodPost)
	api.HandleFunc("/playback/sessions/{id}", playbackHandler.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/playback/sessions/{id}", playbackHandler.CloseSession).Methods(http.MethodDelete)
	api.HandleFunc("/playback/sessions/{id}/progress", playbackHandler.Progress).Methods(http.MethodPost)
	api.HandleFunc("/playback/sessions/{id}/cancel-auto-advance", playbackHandler.CancelAutoAdvance).Methods(http.MethodPost)

	// Watch history
	api.HandleFunc("/history", historyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/history", historyHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/history", historyHandler.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/history/events", historyHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}/progress", historyHandler.UpdateProgress).Methods(http.MethodPatch)
	api.HandleFunc("/history/{id}", historyHandler.Remove).Methods(http.MethodDelete)

	// Images
	api.HandleFunc("/images/proxy", imageHandler.Proxy).Methods(http.MethodGet)
	api.HandleFunc("/images/cache", func(w http.ResponseWriter, r *http.Request) {
		if err := imageHandler.ClearCache(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	// Settings
	api.HandleFunc("/settings", settingsHandler.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", settingsHandler.PutSettings).Methods(http.MethodPut)
}
