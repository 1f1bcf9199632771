// Package email delivers the new-leads digest through AWS SES.
package email

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/leadscout/internal/config"
	"github.com/ignite/leadscout/internal/pkg/logger"
)

// Sender delivers one HTML email. Send reports success; notification
// failures never fail the caller's operation.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) bool
}

// sesAPI is the slice of the SES v2 client we use.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends email through AWS SES using the SDK v2.
type SESSender struct {
	fromName  string
	fromEmail string
	client    sesAPI
}

// NewSESSender creates an SES sender. Static keys in the config take
// priority; otherwise the default credential chain applies. A client
// init failure leaves the sender in a disabled state where Send logs
// and returns false.
func NewSESSender(cfg config.EmailConfig) *SESSender {
	sender := &SESSender{
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		log.Printf("[SES] Warning: failed to initialize AWS config: %v", err)
		return sender
	}
	sender.client = sesv2.NewFromConfig(awsCfg)
	return sender
}

// Send delivers one HTML email through SES.
func (s *SESSender) Send(ctx context.Context, to, subject, html string) bool {
	if s.client == nil {
		log.Printf("[SES] client not initialized, dropping email to %s", logger.RedactEmail(to))
		return false
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("[SES] failed to send to %s: %v", logger.RedactEmail(to), err)
		return false
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("[SES] sent to %s (id: %s)", logger.RedactEmail(to), messageID)
	return true
}

// NopSender drops all email. Used when digests are disabled and in
// tests.
type NopSender struct{}

func (NopSender) Send(context.Context, string, string, string) bool { return false }
