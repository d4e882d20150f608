package smtpmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{From: "noreply@bba.example"})
	require.Error(t, err, "missing host must be rejected")

	_, err = New(Config{Host: "smtp.bba.example"})
	require.Error(t, err, "missing sender address must be rejected")

	sender, err := New(Config{
		Host:     "smtp.bba.example",
		From:     "noreply@bba.example",
		FromName: "BBA Services",
		Username: "mailer",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, 587, sender.config.Port, "port should default to 587")
}

func TestVerificationBody(t *testing.T) {
	body := verificationBody("123456")
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "Welcome to BBA Services!")
	assert.Contains(t, body, "expire in 10 minutes")
}

func TestTOTPSetupBody(t *testing.T) {
	body := totpSetupBody("JBSWY3DPEHPK3PXP", "otpauth://totp/BBA%20Services:a%40x.com?secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, body, "JBSWY3DPEHPK3PXP")
	assert.Contains(t, body, "otpauth://totp/")
	assert.Contains(t, body, "authenticator app")
}
