package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSNSNotifier_SendCode(t *testing.T) {
	var input *sns.PublishInput
	client := &MockSNSPublisher{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			input = params
			return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
		},
	}

	notifier := NewSNSNotifierWithClient(client, "Ditto", testLogger())
	require.NoError(t, notifier.SendCode(context.Background(), "+12025550123", "482913", 5*time.Minute))

	require.NotNil(t, input)
	assert.Equal(t, "+12025550123", aws.ToString(input.PhoneNumber))
	assert.Contains(t, aws.ToString(input.Message), "482913")
	assert.Contains(t, aws.ToString(input.Message), "5 minutes")
	assert.Equal(t, "Transactional", aws.ToString(input.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
	assert.Equal(t, "Ditto", aws.ToString(input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSNSNotifier_NoSenderID(t *testing.T) {
	var input *sns.PublishInput
	client := &MockSNSPublisher{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			input = params
			return &sns.PublishOutput{}, nil
		},
	}

	require.NoError(t, NewSNSNotifierWithClient(client, "", testLogger()).SendCode(context.Background(), "+12025550123", "1", time.Minute))
	_, ok := input.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.False(t, ok)
}

func TestSNSNotifier_PublishError(t *testing.T) {
	client := &MockSNSPublisher{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	err := NewSNSNotifierWithClient(client, "", testLogger()).SendCode(context.Background(), "+12025550123", "1", time.Minute)
	assert.Error(t, err)
}

func TestLogNotifier_SendCode(t *testing.T) {
	assert.NoError(t, NewLogNotifier(testLogger()).SendCode(context.Background(), "+12025550123", "550123", time.Minute))
}
