package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"

	"github.com/freshstart/outreach/pkg/pipeline/core"
)

// sesAPI is the subset of the SES client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers through Amazon SES.
type SESSender struct {
	client           sesAPI
	configurationSet string
}

// NewSESSender loads the default AWS credential chain for region.
func NewSESSender(ctx context.Context, region, configurationSet string) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{client: ses.NewFromConfig(cfg), configurationSet: configurationSet}, nil
}

func (s *SESSender) Name() string { return "ses" }

func (s *SESSender) Send(ctx context.Context, msg Message) (string, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(msg.from()),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		err = fmt.Errorf("%w: ses: %w", ErrSendFailure, err)
		if isThrottle(err) {
			return "", &core.TransientError{Err: err}
		}
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func isThrottle(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.ErrorCode() == "Throttling"
}
