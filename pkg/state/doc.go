// Package state provides a client for the Adobe I/O State service, a
// namespaced key/value store reached over HTTP. The Client type exposes
// Get/Put/Delete/DeleteAll/Any/Stats/List. Keys, values, TTLs and list
// options are validated before any request leaves the process, a 404 from
// the service is reported as absence rather than as an error, and every other
// failure is returned as an *Error carrying one kind of a fixed taxonomy.
//
// Retries and backoff happen below the client in the injected Executor; the
// default executor is a retrying HTTP client. Consistency is only
// guaranteed within one Client: separate clients, even with identical
// credentials, observe each other's writes eventually.
package state
