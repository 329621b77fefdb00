package config

import (
	"os"
	"strings"
)

const (
	EnvServerURL = "JELLYFIN_URL"
	EnvAPIToken  = "JELLYFIN_API_KEY"
	EnvUserID    = "JELLYFIN_USER_ID"
)

// Connection is the resolved Jellyfin endpoint for a scan.
type Connection struct {
	ServerURL string
	APIToken  string
	UserID    string
}

// ResolveConnection layers the connection values: explicit overrides win,
// then environment variables, then persisted settings. The API token has no
// settings-file counterpart, so it can only arrive via override or
// environment.
func ResolveConnection(s Settings, urlOverride, tokenOverride, userOverride string) Connection {
	return Connection{
		ServerURL: firstNonEmpty(urlOverride, os.Getenv(EnvServerURL), s.ServerURL),
		APIToken:  firstNonEmpty(tokenOverride, os.Getenv(EnvAPIToken)),
		UserID:    firstNonEmpty(userOverride, os.Getenv(EnvUserID), s.UserID),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
