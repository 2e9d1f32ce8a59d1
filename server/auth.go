package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"spaceship-sim/internal/config"
)

const (
	defaultTokenTTL = 24 * time.Hour
	bcryptCost      = 12
	keyRateWindow   = 60 * time.Second
	maxKeyAttempts  = 10
)

var (
	errKeyDisabled = errors.New("hud key not configured")
	errBadKey      = errors.New("invalid hud key")
	errRateLimited = errors.New("too many attempts, try again later")
)

// Auth issues and checks the tokens HUD clients present on /ws
type Auth struct {
	log     *zap.Logger
	secret  []byte
	keyHash []byte
	ttl     time.Duration

	// Rate limiting for key attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates an Auth from the [auth] section. Without a configured
// secret a random one is generated, so tokens do not survive a restart.
func NewAuth(cfg config.AuthConfig, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic("failed to generate JWT secret: " + err.Error())
		}
		log.Warn("no jwt_secret configured, using a random one")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Auth{
		log:     log,
		secret:  secret,
		keyHash: []byte(cfg.HUDKeyHash),
		ttl:     ttl,
		rateMap: make(map[string]*rateEntry),
	}
}

// HashKey returns the bcrypt hash to put in hud_key_hash
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// Exchange checks key against the configured hash and returns a signed token
func (a *Auth) Exchange(key, ip string) (string, error) {
	if len(a.keyHash) == 0 {
		return "", errKeyDisabled
	}
	if !a.checkRate(ip) {
		return "", errRateLimited
	}
	if err := bcrypt.CompareHashAndPassword(a.keyHash, []byte(key)); err != nil {
		a.log.Info("hud key rejected", zap.String("ip", ip))
		return "", errBadKey
	}
	return a.IssueToken("hud:" + ip)
}

// IssueToken signs an HS256 token for subject
func (a *Auth) IssueToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates a JWT and returns its subject
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(keyRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxKeyAttempts
}
