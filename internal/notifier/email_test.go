package notifier

import (
	"context"
	"errors"
	"testing"

	"ecom-service/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{}, f.err
}

func TestOrderConfirmation(t *testing.T) {
	event := &models.OrderPlacedEvent{
		OrderID:       42,
		CustomerName:  "Asha <script>",
		CustomerEmail: "asha@example.com",
		TotalAmount:   decimal.RequireFromString("1180"),
		Items: []models.OrderItemData{
			{ProductName: "Phone", Quantity: 2, UnitPrice: decimal.RequireFromString("500")},
		},
	}

	email := OrderConfirmation(event)
	assert.Equal(t, "asha@example.com", email.To)
	assert.Equal(t, "Order #42 Confirmation", email.Subject)
	assert.Contains(t, email.HTMLBody, "Asha &lt;script&gt;")
	assert.Contains(t, email.HTMLBody, "INR 1180.00")
	assert.Contains(t, email.TextBody, "Phone x 2 @ INR 500.00")
}

func TestStockAlert(t *testing.T) {
	email := StockAlert("ops@example.com", &models.StockLowEvent{
		ProductName: "Phone", ColorName: "Black", StockQuantity: 0, Threshold: 5,
	})
	assert.Equal(t, "ops@example.com", email.To)
	assert.Equal(t, "Stock alert: Phone (Black) is OUT_OF_STOCK", email.Subject)
}

func TestSESMailerSend(t *testing.T) {
	fake := &fakeSES{}
	m := &SESMailer{client: fake, sender: "shop@example.com", logger: zap.NewNop()}

	err := m.Send(context.Background(), Email{To: "a@example.com", Subject: "Hi", HTMLBody: "<p>x</p>", TextBody: "x"})
	require.NoError(t, err)
	assert.Equal(t, "shop@example.com", aws.ToString(fake.input.Source))
	assert.Equal(t, []string{"a@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Hi", aws.ToString(fake.input.Message.Subject.Data))

	fake.err = errors.New("throttled")
	assert.Error(t, m.Send(context.Background(), Email{To: "a@example.com"}))
	assert.Error(t, m.Send(context.Background(), Email{}))
}
