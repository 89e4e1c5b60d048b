// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// HashHeader is the request header carrying the HMAC-SHA256 of the request
// body.
const HashHeader = "HashSHA256"

// BodySigner computes keyed HMAC-SHA256 digests of request bodies. Hash
// instances are pooled to avoid an allocation per request.
type BodySigner struct {
	pool sync.Pool
}

// NewBodySigner returns a signer for hashKey, or nil when hashKey is empty.
// A nil *BodySigner is valid and signs nothing.
func NewBodySigner(hashKey string) *BodySigner {
	if hashKey == "" {
		return nil
	}

	key := []byte(hashKey)
	return &BodySigner{pool: sync.Pool{
		New: func() any { return hmac.New(sha256.New, key) },
	}}
}

// Sign returns the hex-encoded HMAC-SHA256 of data, or "" for a nil signer.
func (s *BodySigner) Sign(data []byte) string {
	if s == nil {
		return ""
	}

	h := s.pool.Get().(hash.Hash)
	h.Reset()
	h.Write(data)
	sum := h.Sum(nil)
	h.Reset()
	s.pool.Put(h)

	return hex.EncodeToString(sum)
}
