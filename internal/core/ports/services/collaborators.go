package services

import "context"

// DocumentParser turns a document byte stream (PDF) into a table. The first
// returned row holds the column headers, the remainder the data rows. The
// implementation must honor the context deadline; expiry surfaces upstream as
// a parse timeout.
type DocumentParser interface {
	ParseTable(ctx context.Context, data []byte) ([][]string, error)
}

// FieldEncryptor opaquely encrypts and decrypts individual string values
// before they reach persistence. Implementations must be deterministic only
// in the round trip, not in the ciphertext.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
