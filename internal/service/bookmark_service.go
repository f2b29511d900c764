package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidBookmark signals a bookmark token that failed signature,
// expiry, or shape checks.
var ErrInvalidBookmark = errors.New("invalid bookmark token")

// BookmarkService issues and parses signed saved-filter tokens. A bookmark
// captures the selected-value map of a filter state so it can be shared or
// restored later and fed back into selection reconciliation.
type BookmarkService struct {
	issuer string
	secret []byte
	ttl    time.Duration
}

// NewBookmarkService constructs the service. A zero ttl defaults to 30 days.
func NewBookmarkService(issuer, secret string, ttl time.Duration) *BookmarkService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &BookmarkService{issuer: issuer, secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (s *BookmarkService) TTL() time.Duration { return s.ttl }

// Issue signs a token embedding the selected-value map.
func (s *BookmarkService) Issue(selected map[string][]string) (string, error) {
	if len(selected) == 0 {
		return "", fmt.Errorf("%w: empty selection", ErrInvalidBookmark)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"exp":  now.Add(s.ttl).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  uuid.NewString(),
		"type": "bookmark",
		"sel":  selected,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates a token and returns the embedded selected-value map.
// Scalar values are normalized to one-element lists.
func (s *BookmarkService) Parse(tokenString string) (map[string][]string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidBookmark
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidBookmark
	}
	if tokenType, ok := claims["type"].(string); !ok || tokenType != "bookmark" {
		return nil, ErrInvalidBookmark
	}

	raw, ok := claims["sel"].(map[string]interface{})
	if !ok {
		return nil, ErrInvalidBookmark
	}

	selected := make(map[string][]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			selected[key] = []string{v}
		case []interface{}:
			values := make([]string, 0, len(v))
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, ErrInvalidBookmark
				}
				values = append(values, str)
			}
			selected[key] = values
		default:
			return nil, ErrInvalidBookmark
		}
	}
	return selected, nil
}
