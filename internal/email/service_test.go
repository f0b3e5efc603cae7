package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLinkEmail(t *testing.T) {
	body, err := renderLinkEmail(linkEmailData{
		Title:    "Email Verification",
		Intro:    "Please verify your email.",
		Action:   "Verify Email Address",
		Link:     "https://app.example.com/verify-email/some-token",
		Footer:   "This link will expire in 1 hour.",
		Ignorame: "If you didn't create an account, ignore this email.",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "<h1>Email Verification</h1>")
	assert.Contains(t, body, `href="https://app.example.com/verify-email/some-token"`)
	assert.Contains(t, body, "Verify Email Address")
	assert.Contains(t, body, "This link will expire in 1 hour.")
}

func TestRenderLinkEmailEscapesContent(t *testing.T) {
	body, err := renderLinkEmail(linkEmailData{
		Title: "<script>alert(1)</script>",
		Link:  "https://app.example.com/reset-password/token",
	})
	require.NoError(t, err)

	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}
