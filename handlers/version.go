package handlers

import (
	"net/http"
	"os"
	"strings"
	"sync"

	"marquee/api"
)

// Version is stamped at build time with -ldflags "-X marquee/handlers.Version=...".
// When left empty it is read from version.txt.
var (
	Version     string
	versionOnce sync.Once
)

type VersionResponse struct {
	Version string `json:"version"`
}

// CurrentVersion returns the build version, cached after first lookup.
func CurrentVersion() string {
	versionOnce.Do(func() {
		if strings.TrimSpace(Version) != "" {
			return
		}
		for _, path := range []string{"version.txt", "/app/version.txt"} {
			if data, err := os.ReadFile(path); err == nil {
				Version = strings.TrimSpace(string(data))
				return
			}
		}
		Version = "dev"
	})
	return Version
}

func GetVersion(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, VersionResponse{Version: CurrentVersion()})
}
