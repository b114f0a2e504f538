package integrity

import (
	"crypto/hmac"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SignedOutcome is the subset of an outcome covered by its signature.
type SignedOutcome struct {
	Result   string         `json:"result"`
	EntityID string         `json:"entity_id"`
	Subtype  string         `json:"subtype"`
	Loot     map[string]int `json:"loot"`
	XPGained float64        `json:"xp_gained"`
	Survived bool           `json:"survived"`
}

// SignatureMessage builds the ordered message signed for an outcome. Loot is
// rendered as sorted key:value pairs so map order never matters.
func SignatureMessage(identity, actionID string, startedAt time.Time, out SignedOutcome) string {
	survived := "0"
	if out.Survived {
		survived = "1"
	}
	return strings.Join([]string{
		NormalizeIdentity(identity),
		strings.TrimSpace(actionID),
		FormatTimestamp(startedAt),
		out.Result,
		out.EntityID,
		out.Subtype,
		formatLoot(out.Loot),
		strconv.FormatFloat(out.XPGained, 'f', -1, 64),
		survived,
	}, fieldDelimiter)
}

// Sign returns the hex HMAC-SHA256 of SignatureMessage.
func (k Keyring) Sign(identity, actionID string, startedAt time.Time, out SignedOutcome) string {
	return hex.EncodeToString(k.mac(SignatureMessage(identity, actionID, startedAt, out)))
}

// Verify recomputes the signature and compares it in constant time. A
// mismatch is reported, never raised, so callers can flag and continue.
func (k Keyring) Verify(identity, actionID string, startedAt time.Time, out SignedOutcome, signature string) (bool, string) {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false, "signature is not valid hex"
	}
	want := k.mac(SignatureMessage(identity, actionID, startedAt, out))
	if !hmac.Equal(got, want) {
		return false, "signature mismatch"
	}
	return true, ""
}

func formatLoot(loot map[string]int) string {
	if len(loot) == 0 {
		return ""
	}
	keys := make([]string, 0, len(loot))
	for k := range loot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+strconv.Itoa(loot[k]))
	}
	return strings.Join(parts, ",")
}
