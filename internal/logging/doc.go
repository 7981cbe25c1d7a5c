// Package logging provides structured logging for gpulease. It wraps
// log/slog to emit JSON-formatted records, with child loggers carrying
// persistent attributes such as the claim group.
package logging
