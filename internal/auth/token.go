package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/crossplay/backend/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the lifetime of an issued bearer token.
	DefaultTokenTTL = 24 * time.Hour
	// clockSkew is the tolerance applied to exp/nbf checks.
	clockSkew = 30 * time.Second
)

// Service issues and verifies HS256 bearer tokens carrying a user id.
type Service struct {
	secret        []byte
	ttl           time.Duration
	legacyAllowed bool
	now           func() time.Time
}

type Options struct {
	Secret        string
	TTL           time.Duration
	LegacyAllowed bool
}

func NewService(opts Options) (*Service, error) {
	if len(opts.Secret) < 32 {
		return nil, fmt.Errorf("auth secret must be at least 32 bytes")
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		secret:        []byte(opts.Secret),
		ttl:           ttl,
		legacyAllowed: opts.LegacyAllowed,
		now:           time.Now,
	}, nil
}

// ValidUserID checks the user id format: non-empty, printable, at most 128
// characters.
func ValidUserID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// IssueToken returns a signed token and its expiry for the given user id.
func (s *Service) IssueToken(userID string) (string, time.Time, error) {
	if !ValidUserID(userID) {
		return "", time.Time{}, apperr.Validation("invalid user id")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: sign token: %v", apperr.ErrInternal, err)
	}
	return signed, expiresAt, nil
}

// VerifyToken validates a raw token and returns the user id it carries.
func (s *Service) VerifyToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithLeeway(clockSkew), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", apperr.ErrUnauthenticated)
		}
		return "", fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	if !token.Valid {
		return "", fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid claims", apperr.ErrUnauthenticated)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || !ValidUserID(userID) {
		return "", fmt.Errorf("%w: user_id not found", apperr.ErrUnauthenticated)
	}
	return userID, nil
}

// UserFromRequest resolves the authenticated user for an HTTP request.
// Precedence: Authorization Bearer header, then ?token=, then the legacy
// unsigned paths (?user_id=, X-User-Id, body userId) which are only honored
// when the process runs in a non-production mode without mandatory auth.
func (s *Service) UserFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return "", fmt.Errorf("%w: malformed authorization header", apperr.ErrUnauthenticated)
		}
		return s.VerifyToken(strings.TrimSpace(raw))
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return s.VerifyToken(tok)
	}
	id := r.URL.Query().Get("user_id")
	if id == "" {
		id = r.Header.Get("X-User-Id")
	}
	if id == "" && s.legacyAllowed {
		id = bodyUserID(r)
	}
	return s.legacyUser(id)
}

// UserFromQueryAndHeader resolves the authenticated user for a websocket
// handshake, where only the query string and headers are available.
func (s *Service) UserFromQueryAndHeader(query map[string][]string, header http.Header) (string, error) {
	if h := header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return "", fmt.Errorf("%w: malformed authorization header", apperr.ErrUnauthenticated)
		}
		return s.VerifyToken(strings.TrimSpace(raw))
	}
	if v := query["token"]; len(v) > 0 && v[0] != "" {
		return s.VerifyToken(v[0])
	}
	var legacy string
	if v := query["user_id"]; len(v) > 0 {
		legacy = v[0]
	}
	if legacy == "" {
		legacy = header.Get("X-User-Id")
	}
	return s.legacyUser(legacy)
}

func (s *Service) legacyUser(id string) (string, error) {
	if !s.legacyAllowed || !ValidUserID(id) {
		return "", fmt.Errorf("%w: token required", apperr.ErrUnauthenticated)
	}
	return id, nil
}

// bodyUserID peeks at a JSON request body for a userId field, restoring
// the body for downstream handlers.
func bodyUserID(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))
	if err != nil {
		return ""
	}
	var p struct {
		UserID string `json:"userId"`
	}
	if json.Unmarshal(buf, &p) != nil {
		return ""
	}
	return p.UserID
}
