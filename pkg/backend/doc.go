// Package backend is the HTTP client for the completions backend.
//
// The backend speaks a canonical chat protocol: a request carries only a
// model, role-tagged messages with array content, a temperature and a token
// bound; a response is one complete completion with usage, price and word
// count breakdowns. There is no native tools field and no streaming.
//
// Failures are classified into the typed errors of package api from the HTTP
// status (see MapHTTPError) or the transport failure (see MapNetworkError).
package backend
