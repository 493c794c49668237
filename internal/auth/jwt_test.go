package auth

import (
	"testing"
	"time"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "presensi-test"
)

func TestIssueAndParseSession(t *testing.T) {
	now := time.Now()
	sess, err := IssueSession("Ana", "student", "B1", "dev-1", testIssuer, testKey, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if want := now.Add(15 * time.Minute); sess.ExpiresAt.Sub(want) > time.Second {
		t.Errorf("expiry = %s, want ~%s", sess.ExpiresAt, want)
	}

	claims, err := ParseSession(sess.Token, testKey, testIssuer)
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if claims.Name != "Ana" || claims.Role != "student" || claims.Group != "B1" || claims.DeviceID != "dev-1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseSessionRejectsWrongKey(t *testing.T) {
	sess, err := IssueSession("Ana", "student", "B1", "dev-1", testIssuer, testKey, time.Minute, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSession(sess.Token, "other-key", testIssuer); err == nil {
		t.Error("token accepted with wrong key")
	}
}

func TestParseSessionRejectsWrongIssuer(t *testing.T) {
	sess, err := IssueSession("Ana", "student", "B1", "dev-1", "someone-else", testKey, time.Minute, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSession(sess.Token, testKey, testIssuer); err == nil {
		t.Error("token accepted with wrong issuer")
	}
}

func TestParseSessionRejectsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	sess, err := IssueSession("Ana", "student", "B1", "dev-1", testIssuer, testKey, time.Minute, past)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSession(sess.Token, testKey, testIssuer); err == nil {
		t.Error("expired token accepted")
	}
}

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := HashPassword("rahasia")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "rahasia" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword(hash, "rahasia") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "salah") {
		t.Error("wrong password accepted")
	}
}
