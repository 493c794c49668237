package netgate

import (
	"errors"
	"testing"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	g, err := New("103.209.9.0/24", "103.209.9.100")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestCheckRequest(t *testing.T) {
	g := newTestGate(t)

	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		wantAddr     string
		wantDenied   bool
	}{
		{"in-network remote", "", "103.209.9.15:54021", "103.209.9.15", false},
		{"forwarded header wins", "103.209.9.2", "10.0.0.1:80", "103.209.9.2", false},
		{"first forwarded entry wins", "103.209.9.2, 172.16.0.1", "10.0.0.1:80", "103.209.9.2", false},
		{"v4-in-v6 unmapped", "::ffff:103.209.9.2", "10.0.0.1:80", "103.209.9.2", false},
		{"loopback rewritten", "", "127.0.0.1:9999", "103.209.9.100", false},
		{"v6 loopback rewritten", "", "[::1]:9999", "103.209.9.100", false},
		{"outside network denied", "", "8.8.8.8:53", "8.8.8.8", true},
		{"forwarded outside denied", "203.0.113.7", "103.209.9.2:80", "203.0.113.7", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := g.CheckRequest(tt.forwardedFor, tt.remoteAddr)
			if tt.wantDenied {
				var denied DeniedError
				if !errors.As(err, &denied) {
					t.Fatalf("err = %v, want DeniedError", err)
				}
				if denied.Addr != tt.wantAddr {
					t.Errorf("denied addr = %s, want %s", denied.Addr, tt.wantAddr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckRequest: %v", err)
			}
			if addr != tt.wantAddr {
				t.Errorf("addr = %s, want %s", addr, tt.wantAddr)
			}
		})
	}
}

func TestCheckRequestUnparseableAddress(t *testing.T) {
	g := newTestGate(t)
	if _, err := g.CheckRequest("", "not-an-address"); err == nil {
		t.Fatal("expected error for unparseable address")
	}
}

func TestLoopbackWithoutRewriteIsDenied(t *testing.T) {
	g, err := New("103.209.9.0/24", "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.CheckRequest("", "127.0.0.1:80")
	var denied DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want DeniedError", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New("not-a-cidr", ""); err == nil {
		t.Error("expected error for bad cidr")
	}
	if _, err := New("103.209.9.0/24", "not-an-ip"); err == nil {
		t.Error("expected error for bad rewrite address")
	}
}
