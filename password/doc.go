// Package password hashes and verifies account passwords with Argon2id.
//
// # Output format
//
// Digests are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// [Argon2.NeedsUpgrade] reports digests made with weaker parameters so the
// caller can re-hash after the next successful sign-in.
//
// Only presence is enforced on plaintext. Complexity rules belong to callers.
//
// [GenerateSecret] produces the throwaway passwords mailed during account
// recovery.
package password
