package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID generates a prefixed random identifier, e.g. "table-00b1…".
func NewID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// InferredRelationID derives a stable id for an inferred relation edge from
// its endpoint key. Re-running inference over unchanged data reproduces the
// same id, making the delete-and-reinsert pass idempotent.
func InferredRelationID(fkTableID string, fkFields []string, pkTableID string, pkFields []string) string {
	raw := fkTableID + "|" + strings.Join(fkFields, ",") + "|" + pkTableID + "|" + strings.Join(pkFields, ",")
	sum := sha1.Sum([]byte(raw))
	return "rel-inf-" + hex.EncodeToString(sum[:])
}
