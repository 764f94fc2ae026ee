package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct{ mock.Mock }

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	return &ses.SendEmailOutput{}, args.Error(0)
}

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	return &sns.PublishOutput{}, args.Error(0)
}

func TestSESMailerBuildsMessage(t *testing.T) {
	client := &mockSES{}
	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "noreply@example.com" &&
			len(in.Destination.ToAddresses) == 1 &&
			in.Destination.ToAddresses[0] == "client@example.com" &&
			aws.ToString(in.Message.Subject.Data) == "Application approved" &&
			aws.ToString(in.Message.Body.Text.Data) == "Good news"
	})).Return(nil).Once()

	err := NewSESMailer(client, "noreply@example.com").SendEmail(context.Background(), "client@example.com", "Application approved", "Good news")
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSESMailerReturnsClientError(t *testing.T) {
	client := &mockSES{}
	client.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	err := NewSESMailer(client, "noreply@example.com").SendEmail(context.Background(), "a@example.com", "s", "b")
	assert.EqualError(t, err, "throttled")
}

func TestSNSTexterPublishesToPhone(t *testing.T) {
	client := &mockSNS{}
	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+15550100" && aws.ToString(in.Message) == "Payment approved"
	})).Return(nil).Once()

	require.NoError(t, NewSNSTexter(client).SendSMS(context.Background(), "+15550100", "Payment approved"))
	client.AssertExpectations(t)
}
