package handlers

import "net/http"

// Version is stamped at build time via -ldflags.
var Version = "dev"

func GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}
