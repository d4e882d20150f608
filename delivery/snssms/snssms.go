// Package snssms implements the local-OTP SMS channel on AWS SNS. The engine
// generates the code; this package only transmits it as a transactional SMS.
// Hosted verification is not available through SNS, so CheckCode always
// errors — pair this sender with SMSModeLocal.
package snssms

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Publisher is the slice of the SNS client this package uses.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender transmits locally generated one-time codes over SNS.
type Sender struct {
	client Publisher
}

// New wraps an existing SNS client.
func New(client Publisher) *Sender {
	return &Sender{client: client}
}

// NewFromEnv builds a Sender from the default AWS credential chain.
func NewFromEnv(ctx context.Context) (*Sender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return New(sns.NewFromConfig(cfg)), nil
}

// SendCode publishes the code to phoneNumber as a transactional SMS. The
// returned correlation token is always empty: validation stays local.
func (s *Sender) SendCode(ctx context.Context, phoneNumber, code string) (string, error) {
	if code == "" {
		return "", errors.New("sns sender requires a locally generated code")
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		Message:     aws.String(fmt.Sprintf("Your BBA Services verification code is: %s", code)),
		PhoneNumber: aws.String(phoneNumber),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	return "", err
}

// CheckCode is unsupported: SNS has no hosted verification.
func (s *Sender) CheckCode(context.Context, string, string) (bool, error) {
	return false, errors.New("sns sender does not support hosted verification")
}
