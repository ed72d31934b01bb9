package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	officerTokenExpiry = 12 * time.Hour

	// RoleOfficer is the role claim required for nomination review endpoints.
	RoleOfficer = "officer"
)

// OfficerClaims are the JWT claims carried by a returning officer credential
type OfficerClaims struct {
	OfficerID uuid.UUID `json:"sub"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies officer credentials. How officers obtain
// their tokens is outside this service; it only enforces them.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// SignOfficerToken creates an officer credential (12h expiry)
func (s *JWTService) SignOfficerToken(officerID uuid.UUID, name string) (string, error) {
	now := time.Now()
	claims := &OfficerClaims{
		OfficerID: officerID,
		Name:      name,
		Role:      RoleOfficer,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(officerTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign officer token: %w", err)
	}
	return tokenString, nil
}

// VerifyOfficerToken verifies a credential and requires the officer role
func (s *JWTService) VerifyOfficerToken(tokenString string) (*OfficerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OfficerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*OfficerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Role != RoleOfficer {
		return nil, fmt.Errorf("missing officer role")
	}
	return claims, nil
}
