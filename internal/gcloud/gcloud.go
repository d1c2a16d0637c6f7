// Package gcloud builds client options for the Google Cloud speech APIs.
package gcloud

import (
	"fmt"

	"google.golang.org/api/option"
)

// Credentials selects how a Google client authenticates and which endpoint
// it talks to.
type Credentials struct {
	// CredentialsFile is a service account JSON file. It takes precedence over APIKey.
	CredentialsFile string
	// APIKey is used when no credentials file is given.
	APIKey string
	// Region selects a regional endpoint such as "eu" or "us".
	Region string
}

// ClientOptions returns the options for a client of service, e.g. "speech"
// or "texttospeech". With neither a credentials file nor an API key the
// client falls back to application default credentials.
func ClientOptions(service string, c Credentials) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case c.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	case c.APIKey != "":
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	if c.Region != "" {
		opts = append(opts, option.WithEndpoint(Endpoint(service, c.Region)))
	}
	return opts
}

// Endpoint returns the regional gRPC endpoint of service.
func Endpoint(service, region string) string {
	return fmt.Sprintf("%s-%s.googleapis.com:443", region, service)
}
