package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

// conversationIDLength hex chars kept from the digest (96 bits)
const conversationIDLength = 24

// DeriveConversationID deterministic id of (listing, a, b), independent of argument order
func DeriveConversationID(listingID, participantA, participantB string) string {
	ids := []string{listingID, participantA, participantB}
	sort.Strings(ids)

	// length prefixed, so no id content can shift a boundary
	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(strconv.Itoa(len(id))))
		h.Write([]byte{':'})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))[:conversationIDLength]
}
