package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidLink is returned for tampered, expired or malformed report links.
var ErrInvalidLink = errors.New("invalid report link")

// LinkClaims identify the report a link grants access to.
type LinkClaims struct {
	ReportID  string `json:"rid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// LinkSigner issues and verifies signed, expiring report links.
type LinkSigner struct {
	key     []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewLinkSigner creates a signer. Links point at baseURL/api/reports/{token}.
func NewLinkSigner(key, baseURL string, ttl time.Duration) *LinkSigner {
	return &LinkSigner{key: []byte(key), baseURL: strings.TrimRight(baseURL, "/"), ttl: ttl, now: time.Now}
}

// Token signs a token for the report.
func (s *LinkSigner) Token(reportID, sessionID string) (string, error) {
	now := s.now()
	claims := LinkClaims{
		ReportID:  reportID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   reportID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing report link: %w", err)
	}
	return signed, nil
}

// URL returns a full report link.
func (s *LinkSigner) URL(reportID, sessionID string) (string, error) {
	tok, err := s.Token(reportID, sessionID)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/api/reports/" + tok, nil
}

// Verify checks a token and returns its claims.
func (s *LinkSigner) Verify(token string) (*LinkClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &LinkClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	claims, ok := parsed.Claims.(*LinkClaims)
	if !ok || !parsed.Valid || claims.ReportID == "" {
		return nil, ErrInvalidLink
	}
	return claims, nil
}
