// Package vonagesms implements the hosted-OTP SMS channel on the Vonage
// Verify API. Vonage generates, delivers, and tracks the one-time code; the
// engine only holds the returned request identifier and presents the user's
// code back through CheckCode.
package vonagesms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vonage/vonage-go-sdk"
)

const defaultBrand = "BBA Services"

// Verify API status codes. The API reports outcomes in-band as string codes;
// "0" is success and 16/17 are user-recoverable wrong-code outcomes.
const (
	statusOK               = "0"
	statusWrongCode        = "16"
	statusWorkflowComplete = "17"
)

// Config carries Vonage credentials and the brand string shown in the SMS.
type Config struct {
	APIKey    string
	APISecret string
	Brand     string
}

// Sender implements the SMS side of the delivery gateway in hosted mode.
type Sender struct {
	config Config
	verify *vonage.VerifyClient
}

// New validates cfg and returns a Sender.
func New(cfg Config) (*Sender, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("vonage api key and secret required")
	}
	if cfg.Brand == "" {
		cfg.Brand = defaultBrand
	}

	auth := vonage.CreateAuthFromKeySecret(cfg.APIKey, cfg.APISecret)
	return &Sender{
		config: cfg,
		verify: vonage.NewVerifyClient(auth),
	}, nil
}

// SendCode starts a hosted verification for phoneNumber and returns the
// Vonage request ID as the correlation token. The code argument is ignored:
// Vonage generates the code itself.
func (s *Sender) SendCode(_ context.Context, phoneNumber, _ string) (string, error) {
	// The Verify API wants digits only.
	number := strings.TrimPrefix(phoneNumber, "+")

	resp, respErr, err := s.verify.Request(number, s.config.Brand, vonage.VerifyOpts{
		CodeLength: 6,
		WorkflowID: 1, // SMS only, no TTS fallback
	})
	if err != nil {
		return "", err
	}
	if resp.Status != statusOK {
		return "", fmt.Errorf("vonage verify request failed: status %s: %s", respErr.Status, respErr.ErrorText)
	}
	return resp.RequestId, nil
}

// CheckCode presents code against the outstanding request identified by
// correlationID. A wrong code is (false, nil); transport and API failures are
// errors.
func (s *Sender) CheckCode(_ context.Context, correlationID, code string) (bool, error) {
	resp, respErr, err := s.verify.Check(correlationID, code)
	if err != nil {
		return false, err
	}

	switch resp.Status {
	case statusOK:
		return true, nil
	case "":
		// The SDK reports in-band failures on the error response.
		switch respErr.Status {
		case statusWrongCode, statusWorkflowComplete:
			return false, nil
		}
		return false, fmt.Errorf("vonage verify check failed: status %s: %s", respErr.Status, respErr.ErrorText)
	case statusWrongCode, statusWorkflowComplete:
		return false, nil
	default:
		return false, fmt.Errorf("vonage verify check failed: status %s", resp.Status)
	}
}
