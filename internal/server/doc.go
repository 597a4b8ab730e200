// Package server hosts the Fiber HTTP service that exposes the host content
// tree, plus the bootstrap glue that turns config into a mapping table, a
// ProviderRegistry and a host.Database. Request middleware attaches a request
// id and access logging; the error handler maps host errors to JSON payloads.
// Keep exports narrow and accept explicit dependencies so cmd/treebridge and
// the routes package can reuse the constructors.
package server
