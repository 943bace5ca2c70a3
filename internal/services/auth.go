package services

import (
	"errors"
	"time"

	"imposter-game-backend/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenRoleHost   = "host"
	TokenRolePlayer = "player"
)

// Claims identify the holder within one session. Host tokens leave PlayerID
// and UserID empty.
type Claims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	PlayerID  string `json:"pid,omitempty"`
	UserID    string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

func NewAuthService(jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{jwtSecret: []byte(jwtSecret), ttl: ttl}
}

func (s *AuthService) HostToken(sessionID string) (string, error) {
	return s.GenerateToken(Claims{SessionID: sessionID, Role: TokenRoleHost})
}

func (s *AuthService) PlayerToken(sessionID, playerID, userID string) (string, error) {
	return s.GenerateToken(Claims{SessionID: sessionID, Role: TokenRolePlayer, PlayerID: playerID, UserID: userID})
}

func (s *AuthService) GenerateToken(claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.Unauthorized, "invalid token", err)
	}
	if claims.SessionID == "" || (claims.Role != TokenRoleHost && claims.Role != TokenRolePlayer) {
		return nil, apperr.New(apperr.Unauthorized, "invalid claims")
	}
	if claims.Role == TokenRolePlayer && claims.PlayerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "player token without player id")
	}
	return claims, nil
}
