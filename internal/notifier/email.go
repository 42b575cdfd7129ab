package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"

	"ecom-service/internal/models"
	"ecom-service/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Email is a rendered message ready to send
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers emails
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends mail through Amazon SES
type SESMailer struct {
	client sesAPI
	sender string
	logger *zap.Logger
}

// NewSESMailer builds an SES client. Static credentials are used when an
// access key is configured, the default AWS chain otherwise.
func NewSESMailer(ctx context.Context, region, accessKeyID, secretAccessKey, sender string) (*SESMailer, error) {
	if sender == "" {
		return nil, fmt.Errorf("sender email address is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return &SESMailer{
		client: ses.NewFromConfig(awsCfg),
		sender: sender,
		logger: util.GetLogger(),
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	input := &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(email.Subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(email.HTMLBody),
				},
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(email.TextBody),
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		util.EmailsSentTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to send email: %w", err)
	}

	util.EmailsSentTotal.WithLabelValues("sent").Inc()
	m.logger.Info("Email sent", zap.String("to", email.To), zap.String("subject", email.Subject))
	return nil
}

// LogMailer only logs. It stands in when SES is not configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{logger: util.GetLogger()}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.logger.Info("Email not sent, mailer disabled",
		zap.String("to", email.To),
		zap.String("subject", email.Subject))
	return nil
}

// OrderConfirmation renders the customer email for a placed order
func OrderConfirmation(event *models.OrderPlacedEvent) Email {
	name := event.CustomerName
	if name == "" {
		name = "Customer"
	}
	total := event.TotalAmount.StringFixed(2)

	var rows, lines strings.Builder
	for _, it := range event.Items {
		fmt.Fprintf(&rows, "<li>%s &times; %d @ INR %s</li>",
			html.EscapeString(it.ProductName), it.Quantity, it.UnitPrice.StringFixed(2))
		fmt.Fprintf(&lines, "- %s x %d @ INR %s\n", it.ProductName, it.Quantity, it.UnitPrice.StringFixed(2))
	}

	bodyHTML := fmt.Sprintf(`<html>
<body>
<p>Dear %s,</p>
<p>Thank you for your order! Your order #%d has been successfully placed.</p>
<ul>%s</ul>
<p><strong>Total Amount: INR %s</strong></p>
<p>We'll send you another email when your order ships.</p>
</body>
</html>`, html.EscapeString(name), event.OrderID, rows.String(), total)

	bodyText := fmt.Sprintf("Dear %s,\n\nThank you for your order! Your order #%d has been successfully placed.\n\n%s\nTotal Amount: INR %s\n",
		name, event.OrderID, lines.String(), total)

	return Email{
		To:       event.CustomerEmail,
		Subject:  fmt.Sprintf("Order #%d Confirmation", event.OrderID),
		HTMLBody: bodyHTML,
		TextBody: bodyText,
	}
}

// StockAlert renders the admin email for a color running low
func StockAlert(to string, event *models.StockLowEvent) Email {
	label := event.ProductName
	if event.ColorName != "" {
		label += " (" + event.ColorName + ")"
	}
	status := models.StockStatusFor(event.StockQuantity, event.Threshold)

	return Email{
		To:      to,
		Subject: fmt.Sprintf("Stock alert: %s is %s", label, status),
		HTMLBody: fmt.Sprintf("<html><body><p><strong>%s</strong> has %d units left (threshold %d).</p></body></html>",
			html.EscapeString(label), event.StockQuantity, event.Threshold),
		TextBody: fmt.Sprintf("%s has %d units left (threshold %d).\n", label, event.StockQuantity, event.Threshold),
	}
}
