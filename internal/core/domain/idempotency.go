package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// StoredResponse is a completed HTTP response kept for Idempotency-Key replay.
type StoredResponse struct {
	StatusCode  int       `json:"status_code"`
	Body        []byte    `json:"body"`
	RequestHash string    `json:"request_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Matches reports whether requestHash fingerprints the request that
// produced this response.
func (r *StoredResponse) Matches(requestHash string) bool {
	return r.RequestHash == requestHash
}

// BuildIdempotencyKey scopes a client-supplied key to the caller and the
// concrete request target, e.g. "POST /v1/accounts/01123456/transactions".
func BuildIdempotencyKey(userID uuid.UUID, target, clientKey string) string {
	return userID.String() + ":" + target + ":" + clientKey
}

// RequestFingerprint hashes a request body for comparison on replay.
func RequestFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
