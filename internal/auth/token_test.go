package auth

import (
	"testing"
	"time"
)

func TestIssueThenVerifyRoundTrips(t *testing.T) {
	iss := NewIssuer("test-secret", time.Minute)
	token, err := iss.Issue(SessionClaims{CallControlID: "call-1", Workspace: "ws-1", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
	if claims.CallControlID != "call-1" || claims.Workspace != "ws-1" || claims.AgentID != "agent-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	iss := NewIssuer("test-secret", -time.Minute)
	token, err := iss.Issue(SessionClaims{CallControlID: "call-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := iss.Verify(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issA := NewIssuer("secret-a", time.Minute)
	issB := NewIssuer("secret-b", time.Minute)

	token, err := issA.Issue(SessionClaims{CallControlID: "call-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := issB.Verify(token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestVerifyRejectsMissingCallControlID(t *testing.T) {
	iss := NewIssuer("test-secret", time.Minute)
	token, err := iss.Issue(SessionClaims{Workspace: "ws-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := iss.Verify(token); err == nil {
		t.Fatal("expected error for missing call_control_id")
	}
}
