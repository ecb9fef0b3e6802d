package notify

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
)

// SNSMessenger sends SMS through Amazon SNS.
type SNSMessenger struct {
	client   aws.SNSAPI
	senderID string
}

// NewSNSMessenger returns a Messenger backed by SNS. senderID is optional.
func NewSNSMessenger(client aws.SNSAPI, senderID string) *SNSMessenger {
	return &SNSMessenger{client: client, senderID: senderID}
}

// SendMessage publishes body to the phone number to.
func (m *SNSMessenger) SendMessage(ctx context.Context, to, body string) (string, error) {
	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String("Transactional"),
		},
	}
	if m.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String(m.senderID),
		}
	}

	out, err := m.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       sdkaws.String(to),
		Message:           sdkaws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
