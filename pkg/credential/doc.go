// Package credential hashes and verifies password secrets.
//
// Secrets travel as Secret values, which redact themselves in fmt, slog and
// JSON output. Hashes are argon2id in PHC string form with a random salt per
// hash, so hashing the same secret twice gives two different strings.
//
//	h := credential.NewArgon2idHasher(credential.DefaultParams)
//	encoded, err := h.Hash(credential.NewSecret(password))
//	ok, err := h.Verify(encoded, credential.NewSecret(candidate))
package credential
