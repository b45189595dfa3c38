// Package vezor is the Go client for the Vezor secrets management API.
// It covers the full REST surface: secrets and their version history, tag
// discovery, server-defined groups, organizations, environment export and
// import, schema validation and the audit log.
//
// Every call performs exactly one HTTP round trip. There are no implicit
// retries and no caching; callers that want either wrap the client
// themselves.
package vezor

// Version is the library version reported in the User-Agent header.
const Version = "2.0.0"

// DefaultBaseURL is the hosted Vezor API endpoint. Point Config.BaseURL
// at a self-hosted deployment or a local dev server to override it.
const DefaultBaseURL = "https://api.vezor.io"

// apiPrefix is prepended to every resource path.
const apiPrefix = "/api/v1"

func userAgent() string {
	return "vezor-go/" + Version
}
