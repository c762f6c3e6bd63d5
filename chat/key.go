package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/chatline/chatline/fault"
)

// conversationIDLen keeps ids readable; 20 bytes of the digest is ample
// for collision purposes at any realistic conversation count.
const conversationIDLen = 40

// CanonicalParticipants deduplicates and sorts a participant id set.
// The canonical form is the conversation's natural key, so any
// permutation of the same ids resolves to the same conversation.
func CanonicalParticipants(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	canonical := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		canonical = append(canonical, id)
	}
	if len(canonical) < 2 {
		return nil, fault.Errorf(fault.KindInvalid, "chat.canonical", "need at least 2 distinct participants, got %d", len(canonical))
	}
	sort.Strings(canonical)
	return canonical, nil
}

// ConversationID derives the document id from the canonical participant
// set. Deterministic ids make creation idempotent: concurrent creators
// for the same set converge on one document instead of racing a
// read-then-write into duplicates.
func ConversationID(canonical []string) string {
	h := sha256.New()
	for _, id := range canonical {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:conversationIDLen]
}
