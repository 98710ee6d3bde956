// Package fetcher provides the HTTP transport shared by the facility data
// providers: JSON GET/POST with retry, backoff, and per-host rate limiting.
package fetcher

import "context"

// JSONFetcher abstracts the provider transport so provider tests can stub it.
type JSONFetcher interface {
	// GetJSON fetches the URL and decodes the JSON response into out.
	GetJSON(ctx context.Context, url string, out any) error

	// PostJSON sends body with the given content type and decodes the JSON
	// response into out.
	PostJSON(ctx context.Context, url, contentType, body string, out any) error
}
