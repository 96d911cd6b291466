package security

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewAuditor(t *testing.T) {
	tests := []struct {
		name    string
		logger  *slog.Logger
		enabled bool
	}{
		{
			name:    "enabled with logger",
			logger:  slog.Default(),
			enabled: true,
		},
		{
			name:    "disabled with logger",
			logger:  slog.Default(),
			enabled: false,
		},
		{
			name:    "enabled with nil logger",
			logger:  nil,
			enabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := NewAuditor(tt.logger, tt.enabled)
			if auditor.enabled != tt.enabled {
				t.Errorf("enabled = %v, want %v", auditor.enabled, tt.enabled)
			}
			if auditor.logger == nil {
				t.Error("logger should not be nil")
			}
		})
	}
}

func TestAuditor_LogEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tests := []struct {
		name    string
		enabled bool
		wantLog bool
	}{
		{name: "enabled", enabled: true, wantLog: true},
		{name: "disabled", enabled: false, wantLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			auditor := NewAuditor(logger, tt.enabled)

			auditor.LogEvent(Event{
				Type:      EventTokenIssued,
				ClientID:  "client-456",
				IPAddress: "192.0.2.1",
				Details:   map[string]any{"key": "value"},
			})

			hasLog := buf.Len() > 0
			if hasLog != tt.wantLog {
				t.Errorf("LogEvent() logged = %v, want %v", hasLog, tt.wantLog)
			}
			if tt.wantLog && !strings.Contains(buf.String(), EventTokenIssued) {
				t.Errorf("log output missing event type: %s", buf.String())
			}
		})
	}
}

func TestAuditor_LogTokenRevoked_HashesToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	auditor := NewAuditor(logger, true)

	token := "very-secret-refresh-token-value"
	auditor.LogTokenRevoked("client-1", "192.0.2.1", "refresh_token", token)

	out := buf.String()
	if strings.Contains(out, token) {
		t.Error("log output contains the raw token value")
	}
	if !strings.Contains(out, HashForLogging(token)) {
		t.Error("log output should contain the token hash")
	}
}

func TestAuditor_Helpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	auditor := NewAuditor(logger, true)

	tests := []struct {
		name     string
		log      func()
		wantType string
	}{
		{
			name:     "client registered",
			log:      func() { auditor.LogClientRegistered("client-1", "192.0.2.1") },
			wantType: EventClientRegistered,
		},
		{
			name:     "authorization started",
			log:      func() { auditor.LogAuthorizationStarted("client-1", "192.0.2.1", []string{"read"}) },
			wantType: EventAuthorizationFlowStarted,
		},
		{
			name:     "code issued",
			log:      func() { auditor.LogCodeIssued("client-1", "192.0.2.1") },
			wantType: EventAuthorizationCodeIssued,
		},
		{
			name:     "token issued",
			log:      func() { auditor.LogTokenIssued("client-1", "192.0.2.1", []string{"read", "write"}) },
			wantType: EventTokenIssued,
		},
		{
			name:     "token refreshed",
			log:      func() { auditor.LogTokenRefreshed("client-1", "192.0.2.1", true) },
			wantType: EventTokenRefreshed,
		},
		{
			name:     "auth failure",
			log:      func() { auditor.LogAuthFailure("client-1", "192.0.2.1", "invalid code") },
			wantType: EventAuthFailure,
		},
		{
			name:     "rate limit exceeded",
			log:      func() { auditor.LogRateLimitExceeded("192.0.2.1", "/token") },
			wantType: EventRateLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			if !strings.Contains(buf.String(), tt.wantType) {
				t.Errorf("log output missing event type %q: %s", tt.wantType, buf.String())
			}
		})
	}
}

func TestHashForLogging(t *testing.T) {
	if got := HashForLogging(""); got != "<empty>" {
		t.Errorf("HashForLogging(\"\") = %q, want %q", got, "<empty>")
	}

	h := HashForLogging("sensitive")
	if len(h) != 16 {
		t.Errorf("hash length = %d, want 16", len(h))
	}
	if h != HashForLogging("sensitive") {
		t.Error("hash should be deterministic")
	}
	if h == HashForLogging("different") {
		t.Error("different inputs should hash differently")
	}
}
