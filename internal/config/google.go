package config

import (
	"os"

	"google.golang.org/api/option"
)

// GoogleClientOptions returns client options for Google Cloud clients.
// Inline GOOGLE_CREDENTIALS JSON wins over a GOOGLE_APPLICATION_CREDENTIALS
// file; with neither set, application default credentials are used.
func GoogleClientOptions(extra ...option.ClientOption) []option.ClientOption {
	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}
	return append(opts, extra...)
}

// HasGoogleCredentials reports whether explicit credentials are configured.
func HasGoogleCredentials() bool {
	return os.Getenv("GOOGLE_CREDENTIALS") != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
}
