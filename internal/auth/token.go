// Package auth issues and validates the short-lived HMAC tokens the
// bridge hands out for ephemeral provider-session bearer auth, grounded
// on the teacher's own JWT signing/parsing shape in
// internal/adapters/http/wati_client.go (jwt.NewWithClaims with
// SigningMethodHS256 and jwt.MapClaims), migrated to jwt/v5.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs and verifies ephemeral session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewIssuer creates an Issuer using secret to sign tokens valid for ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, issuer: "voice-session-bridge"}
}

// SessionClaims identifies the call and workspace a token authorizes.
type SessionClaims struct {
	CallControlID string
	Workspace     string
	AgentID       string
}

// Issue mints a signed token for claims, valid from now for the
// Issuer's configured ttl.
func (iss *Issuer) Issue(claims SessionClaims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"call_control_id": claims.CallControlID,
		"workspace":       claims.Workspace,
		"agent_id":        claims.AgentID,
		"iss":             iss.issuer,
		"iat":             now.Unix(),
		"exp":             now.Add(iss.ttl).Unix(),
	})

	signed, err := token.SignedString(iss.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates tokenString, returning the claims it
// carries if the signature and expiry both check out.
func (iss *Issuer) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return iss.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}

	callControlID, _ := claims["call_control_id"].(string)
	workspace, _ := claims["workspace"].(string)
	agentID, _ := claims["agent_id"].(string)
	if callControlID == "" {
		return nil, fmt.Errorf("session token missing call_control_id")
	}

	return &SessionClaims{CallControlID: callControlID, Workspace: workspace, AgentID: agentID}, nil
}
