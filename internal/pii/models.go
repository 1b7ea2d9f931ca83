// Package pii owns the high-sensitivity side of the data model: encrypted
// personal data records, physically segregated from the decision store. This
// component stores ciphertext verbatim and never holds a decryption
// capability.
package pii

import (
	"time"

	"civic/internal/cipher"
)

// Record is the PII store entry for one submission. All five personal fields
// are ciphertext produced by the gateway; plaintext is never persisted. A
// record always carries all five fields encrypted under the same key scope:
// partial encryption is not a valid state.
type Record struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	DateOfBirth string    `json:"date_of_birth"`
	Address     string    `json:"address"`
	PhoneNumber string    `json:"phone_number"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// EncryptedFields returns the five ciphertext fields as a batch for the
// decrypting consumers.
func (r Record) EncryptedFields() cipher.Fields {
	return cipher.Fields{
		Username:    r.Username,
		FullName:    r.FullName,
		DateOfBirth: r.DateOfBirth,
		Address:     r.Address,
		PhoneNumber: r.PhoneNumber,
	}
}
