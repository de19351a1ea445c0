// File: internal/auth/authenticator_test.go
package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tsanko9k/inkclip/internal/config"
	"github.com/tsanko9k/inkclip/internal/debugrec"
)

func TestEscapeReason(t *testing.T) {
	tests := []struct {
		name       string
		currentURL string
		content    string
		wantReason string
		wantBlock  bool
	}{
		{
			name:       "verification redirect means two-factor",
			currentURL: "https://medium.com/m/account/verify?token=x",
			wantReason: "two-factor authentication required; manual login needed",
			wantBlock:  true,
		},
		{
			name:       "verify match is case-insensitive",
			currentURL: "https://medium.com/m/VERIFY",
			wantReason: "two-factor authentication required; manual login needed",
			wantBlock:  true,
		},
		{
			name:       "captcha challenge in content",
			currentURL: "https://medium.com/m/signin",
			content:    `<div class="g-recaptcha">Please solve this CAPTCHA</div>`,
			wantReason: "CAPTCHA detected; manual login required",
			wantBlock:  true,
		},
		{
			name:       "clean post-submit page",
			currentURL: "https://medium.com/",
			content:    "<html><body>Welcome back</body></html>",
			wantBlock:  false,
		},
		{
			name:       "verification outranks captcha",
			currentURL: "https://medium.com/m/account/verify",
			content:    "captcha",
			wantReason: "two-factor authentication required; manual login needed",
			wantBlock:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, blocked := EscapeReason(tt.currentURL, tt.content)
			assert.Equal(t, tt.wantBlock, blocked)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestLoginRequiresConfiguredCredentials(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Medium.Email = ""
	a := New(cfg, zap.NewNop(), debugrec.New(false, "", zap.NewNop()))

	// No browser work happens before the credential check, so a plain
	// context is fine here.
	res := a.Login(context.Background())

	assert.False(t, res.Authenticated)
	assert.Equal(t, "login credentials are not configured", res.Reason)
}

func TestChainCoverage(t *testing.T) {
	// Every step of the state machine carries at least two fallback
	// candidates; a single hard-coded query defeats the purpose.
	for _, chain := range []struct {
		name string
		n    int
	}{
		{signinChain.Name, len(signinChain.Candidates)},
		{emailMethodChain.Name, len(emailMethodChain.Candidates)},
		{emailFieldChain.Name, len(emailFieldChain.Candidates)},
		{continueChain.Name, len(continueChain.Candidates)},
		{passwordFieldChain.Name, len(passwordFieldChain.Candidates)},
		{passwordSigninChain.Name, len(passwordSigninChain.Candidates)},
	} {
		assert.GreaterOrEqual(t, chain.n, 2, chain.name)
	}
}
