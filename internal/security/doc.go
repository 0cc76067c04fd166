// Package security summarizes the security-relevant settings of an engine
// configuration. The server logs the summary at startup and check-config
// prints it.
package security
