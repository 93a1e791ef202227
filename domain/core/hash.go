package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// SourceHash fingerprints the raw bytes of a loaded input file so a snapshot
// can be traced back to the exact data it was computed from.
type SourceHash Hash

// ComputeSourceHash fingerprints raw file content
func ComputeSourceHash(data []byte) SourceHash { return SourceHash(NewHash(data)) }

func (h SourceHash) String() string { return Hash(h).String() }
