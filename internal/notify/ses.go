package notify

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
)

// SESMailer sends email through Amazon SES v2.
type SESMailer struct {
	client           aws.SESAPI
	from             string
	configurationSet string
}

// NewSESMailer returns a Mailer sending from the verified address from.
func NewSESMailer(client aws.SESAPI, from, configurationSet string) *SESMailer {
	return &SESMailer{client: client, from: from, configurationSet: configurationSet}
}

// SendEmail sends a single HTML email.
func (m *SESMailer) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: sdkaws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{to}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: sdkaws.String(subject), Charset: sdkaws.String("UTF-8")},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: sdkaws.String(html), Charset: sdkaws.String("UTF-8")},
				},
			},
		},
	}
	if m.configurationSet != "" {
		in.ConfigurationSetName = sdkaws.String(m.configurationSet)
	}

	out, err := m.client.SendEmail(ctx, in)
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
