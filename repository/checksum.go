package repository

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
)

// digest computes a stable content digest of v. The caller passes a
// normalized copy with volatile fields cleared so timestamps that change
// every cycle do not defeat deduplication. A serialization failure
// reports ok=false; the store fails open and accepts the item.
func digest(v any) (string, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%x", md5.Sum(raw)), true
}
