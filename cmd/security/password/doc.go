// Package password verifies login credentials against stored Argon2id hashes.
//
// Stored hashes use the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Hash strings read from storage are treated as untrusted input: Verify refuses
// parameters far beyond the configured cost so a tampered row cannot pin a CPU.
// Password strength rules are not enforced here; accounts are provisioned elsewhere.
package password
