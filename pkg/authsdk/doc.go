// Package authsdk contains the wire types, error values and HTTP client for
// the gatehouse API. Both the server handlers and downstream Go services use
// this package, so request and response shapes only exist in one place.
package authsdk
