// Package cache provides the in-memory lookup caches shared by the remote
// repositories. Entries live until an explicit Clear; there is no TTL and no
// size bound, since every list-all refreshes the full set and the host clears
// it again on the next enumeration.
package cache
