package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkglogger "github.com/BradenHooton/ditto/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// CodeNotifier delivers an issued verification code to the phone
type CodeNotifier interface {
	SendCode(ctx context.Context, phone, code string, ttl time.Duration) error
}

// LogNotifier records deliveries in the log instead of sending SMS.
// It never writes the code; the issuer's debug logging covers that in
// development and test.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendCode(ctx context.Context, phone, _ string, ttl time.Duration) error {
	n.logger.InfoContext(ctx, "verification code delivered to log channel",
		slog.String("phone", pkglogger.SanitizedPhone(phone)),
		slog.Duration("ttl", ttl))
	return nil
}

// SNSPublisher is the subset of the SNS client used for SMS delivery
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier sends verification codes as transactional SMS through AWS SNS
type SNSNotifier struct {
	client   SNSPublisher
	senderID string
	logger   *slog.Logger
}

// NewSNSNotifier loads the default AWS config for region and builds an SNS client
func NewSNSNotifier(ctx context.Context, region, senderID string, logger *slog.Logger) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSNSNotifierWithClient(sns.NewFromConfig(cfg), senderID, logger), nil
}

func NewSNSNotifierWithClient(client SNSPublisher, senderID string, logger *slog.Logger) *SNSNotifier {
	return &SNSNotifier{client: client, senderID: senderID, logger: logger}
}

func (n *SNSNotifier) SendCode(ctx context.Context, phone, code string, ttl time.Duration) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if n.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(n.senderID),
		}
	}

	input := &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))),
		MessageAttributes: attrs,
	}

	result, err := n.client.Publish(ctx, input)
	if err != nil {
		n.logger.Error("failed to send verification code via SNS",
			slog.String("phone", pkglogger.SanitizedPhone(phone)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send sms: %w", err)
	}

	n.logger.Info("verification code sent",
		slog.String("phone", pkglogger.SanitizedPhone(phone)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
