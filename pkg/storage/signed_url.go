package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadClaim is the authorization a download token carries: which item,
// for which owner, over which stored file, until when. Tokens that parse but
// name a different item or owner must be refused by the caller.
type DownloadClaim struct {
	ItemID    string
	OwnerID   string
	RelPath   string
	ExpiresAt time.Time
}

// SignedURLSigner mints and validates HMAC-signed download tokens. A token is
// the base64url claim payload joined to its base64url HMAC-SHA256 signature
// with a dot; nothing in it is encrypted, only tamper-proofed.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate mints a token binding the item, its owner and the stored file
// path for the signer's TTL.
func (s *SignedURLSigner) Generate(itemID, ownerID, relPath string) (string, time.Time, error) {
	if itemID == "" || ownerID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("itemID, ownerID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	payload := strings.Join([]string{itemID, ownerID, relPath, strconv.FormatInt(expiresAt.Unix(), 10)}, "\n")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.sign(encoded), expiresAt, nil
}

// Parse verifies the token signature and expiry and returns the claim.
// Expired tokens fail here; callers never see a stale claim.
func (s *SignedURLSigner) Parse(token string) (*DownloadClaim, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || signature == "" {
		return nil, fmt.Errorf("invalid token format")
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return nil, fmt.Errorf("invalid token signature")
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	fields := strings.Split(string(raw), "\n")
	if len(fields) != 4 {
		return nil, fmt.Errorf("invalid token payload")
	}
	expUnix, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token expiry")
	}
	claim := &DownloadClaim{
		ItemID:    fields[0],
		OwnerID:   fields[1],
		RelPath:   fields[2],
		ExpiresAt: time.Unix(expUnix, 0),
	}
	if claim.ItemID == "" || claim.OwnerID == "" || claim.RelPath == "" {
		return nil, fmt.Errorf("invalid token payload")
	}
	if time.Now().After(claim.ExpiresAt) {
		return nil, fmt.Errorf("token expired")
	}
	return claim, nil
}

func (s *SignedURLSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
