// Package integrity derives deterministic RNG seeds from action identity,
// signs resolved outcomes, and runs the timing and rate checks used to flag
// tampered or automated play.
//
// # Determinism
//
// Every function here is a pure function of its inputs and the server-held
// secret. Identical inputs produce identical seeds and signatures across
// processes; without the secret neither can be predicted.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	fieldDelimiter = "|"

	// antiCheatModulus is 2^31-1.
	antiCheatModulus = 2147483647
)

var (
	ErrValidation  = errors.New("integrity validation failed")
	ErrEmptySecret = errors.New("hmac secret is required")
)

// ValidationError names the SeedParts field that was missing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("seed parts: %s is required", e.Field)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// SeedParts binds one action instance to its RNG stream.
type SeedParts struct {
	Identity      string    `json:"identity"`
	SlotID        string    `json:"slot_id"`
	StartedAt     time.Time `json:"started_at"`
	ConfigVersion string    `json:"config_version"`
	ActionID      string    `json:"action_id"`
}

// Keyring holds the server secret shared by seeding and signing. It is
// read-only after construction and safe for concurrent use.
type Keyring struct {
	secret []byte
}

func NewKeyring(secret []byte) (Keyring, error) {
	if len(secret) == 0 {
		return Keyring{}, ErrEmptySecret
	}
	buf := make([]byte, len(secret))
	copy(buf, secret)
	return Keyring{secret: buf}, nil
}

// NormalizeIdentity trims and lowercases an actor identity.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// FormatTimestamp renders t as unix seconds with microsecond precision. The
// rendering is exact, so seeds and signatures agree across runtimes.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	return strconv.FormatInt(t.Unix(), 10) + "." + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}

// SeedMessage is the exact byte string hashed by ComputeSeed.
func SeedMessage(parts SeedParts) string {
	return strings.Join([]string{
		NormalizeIdentity(parts.Identity),
		strings.TrimSpace(parts.SlotID),
		FormatTimestamp(parts.StartedAt),
		strings.TrimSpace(parts.ConfigVersion),
		strings.TrimSpace(parts.ActionID),
	}, fieldDelimiter)
}

// ComputeSeed derives the 64-bit RNG seed for one action instance from the
// leading 16 hex characters of HMAC-SHA256(secret, SeedMessage(parts)).
func (k Keyring) ComputeSeed(parts SeedParts) (uint64, error) {
	if NormalizeIdentity(parts.Identity) == "" {
		return 0, &ValidationError{Field: "identity"}
	}
	if strings.TrimSpace(parts.ConfigVersion) == "" {
		return 0, &ValidationError{Field: "config_version"}
	}
	if len(k.secret) == 0 {
		return 0, ErrEmptySecret
	}
	digest := hex.EncodeToString(k.mac(SeedMessage(parts)))
	seed, err := strconv.ParseUint(digest[:16], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse seed digest: %w", err)
	}
	return seed, nil
}

// AntiCheatSeed derives the seed the anti-cheat layer uses to reproduce an
// action's server-side rolls. The result lies in [0, 2^31-1).
func (k Keyring) AntiCheatSeed(identity, actionID string, startedAt time.Time) int64 {
	msg := strings.Join([]string{
		NormalizeIdentity(identity),
		strings.TrimSpace(actionID),
		FormatTimestamp(startedAt),
	}, fieldDelimiter)
	sum := k.mac(msg)
	return int64(binary.BigEndian.Uint64(sum[:8]) % antiCheatModulus)
}

func (k Keyring) mac(msg string) []byte {
	h := hmac.New(sha256.New, k.secret)
	h.Write([]byte(msg))
	return h.Sum(nil)
}
