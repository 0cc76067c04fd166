// Package internal holds helpers private to sessionkit: credential
// fingerprints for denylist keys and log lines.
//
// Sub-packages:
//
//   - config: koanf loader for the server configuration file and flags
//   - logging: slog setup with trace correlation and oops-aware error logging
//   - rate: Redis fixed-window quotas
//   - security: configuration posture report
package internal
