package redact_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solislegal/leadbot/internal/service/redact"
)

func TestRedact_ProviderKeyPrefixes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "openai project key",
			in:   "auth failed: sk-proj-Abc123Def456Ghi789",
			want: "auth failed: sk-proj-***MASKED***",
		},
		{
			name: "openai legacy key",
			in:   "sk-ZZZZZZZZZZZZZZZZ rejected",
			want: "sk-***MASKED*** rejected",
		},
		{
			name: "google api key",
			in:   "url?key=AIzaSyD4-abcdefg_hijklmnop",
			want: "url?key=AIza***MASKED***",
		},
		{
			name: "github tokens",
			in:   "ghp_16C7e42F292c6912E7710c83 and ghu_16C7e42F292c6912E7710c83",
			want: "ghp_***MASKED*** and ghu_***MASKED***",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redact.Redact(tt.in))
		})
	}
}

func TestRedact_BotToken(t *testing.T) {
	in := "request to /bot123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw/sendMessage failed"
	out := redact.Redact(in)
	assert.NotContains(t, out, "AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw")
	assert.Contains(t, out, "***BOT_TOKEN_MASKED***")
}

func TestRedact_Base64Run(t *testing.T) {
	secret := strings.Repeat("Qm", 25) + "=="
	out := redact.Redact("blob " + secret + " end")
	assert.NotContains(t, out, secret)
	assert.Contains(t, out, secret[:8]+"***")
}

func TestRedact_LeavesProseAlone(t *testing.T) {
	prose := []string{
		"user 42 asked about contract termination under labour law",
		"chat not found",
		"timeout after 30s talking to upstream",
		"short-token: abc123",
	}
	for _, p := range prose {
		assert.Equal(t, p, redact.Redact(p))
	}
}

func TestRedact_Idempotent(t *testing.T) {
	inputs := []string{
		"sk-proj-Abc123Def456Ghi789 leaked",
		"123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw",
		strings.Repeat("A", 44),
		"plain text with nothing secret in it",
	}
	for _, in := range inputs {
		once := redact.Redact(in)
		assert.Equal(t, once, redact.Redact(once))
	}
}
