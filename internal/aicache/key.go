package aicache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key derives the cache key for an analysis kind and its parameters. The
// parameters are canonicalised through a generic JSON value first, so struct
// field order and map insertion order never change the digest.
func Key(kind string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode cache params: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("canonicalise cache params: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("encode canonical params: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "ai:" + kind + ":" + hex.EncodeToString(sum[:]), nil
}
