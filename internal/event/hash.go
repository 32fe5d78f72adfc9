package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent   = "pql/event/v1"
	DomainBinding = "pql/binding/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentID computes a content-addressed id for an event.
// Two events with equal fields always produce the same id.
func ContentID(e Event) (string, error) {
	canonical, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("ContentID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// BindingHash computes the hash used for rule-firing idempotency.
//
// doc is the canonical document of one named binding (statement name mapped
// to an Event or a Stream). The same binding always hashes the same way,
// regardless of map iteration order.
func BindingHash(doc map[string]any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("BindingHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// MustContentID is like ContentID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentID(e Event) string {
	id, err := ContentID(e)
	if err != nil {
		panic(err)
	}
	return id
}
