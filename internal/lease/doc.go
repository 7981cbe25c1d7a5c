// Package lease implements cooperative admission control for a single
// shared GPU through a directory of claim files.
//
// Each participating process that is granted admission writes one claim
// file whose content is its group name and whose modification time is kept
// fresh by a background heartbeat. Any scan of the directory deletes
// entries whose heartbeat has lapsed, so a crashed holder's slot is
// reclaimed passively by the next participant that looks; no daemon or
// privileged cleanup process is required.
//
// The protocol is deliberately best-effort: a scan followed by an acquire
// is not atomic, and two processes racing on an empty directory can both
// be granted. Callers that need stronger guarantees must layer them on
// top.
package lease
