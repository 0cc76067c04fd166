// Package rate implements the fixed-window request quotas that gate every
// sensitive session action.
//
// # Window semantics
//
// One Lua script increments rl:<action>:<caller>, arms the window expiry when
// the key is new, and returns the count and remaining window in a single round
// trip. Counts are never rolled back, so rejected attempts still consume quota.
//
// Store errors are returned as [ErrUnavailable]; the limiter fails closed.
package rate
