// Package source provides rate-limited access to the upstream market
// data API.
//
// The upstream speaks an RPC-style protocol: every call is a POST with
// a JSON envelope {api_name, token, params, fields} answered by a
// columnar result set {fields: [...], items: [[...], ...]}.
//
// An Adapter is scoped to one instrument and date window and exposes
// one typed fetch per data category. Empty results are not errors:
// fetches return (nil, nil) and the caller skips the unit. Every wire
// attempt, retries included, waits on the shared rate limiter first.
package source
