package ses

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"payflow/internal/domain"
	"payflow/internal/port"
)

type sesSink struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	recipients  []string
}

// NewSink creates an SES-backed NotificationSink that emails the accounts
// payable team on workflow events.
func NewSink(region, fromAddress, fromName string, recipients []string) (port.NotificationSink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesSink{
		client:      sesv2.NewFromConfig(cfg),
		fromAddress: fromAddress,
		fromName:    fromName,
		recipients:  recipients,
	}, nil
}

func (s *sesSink) Notify(ctx context.Context, event domain.NotificationEventType, invoice *domain.Invoice, detail string) error {
	if len(s.recipients) == 0 {
		return nil
	}

	subject, body := buildMessage(event, invoice, detail)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &body},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildMessage(event domain.NotificationEventType, invoice *domain.Invoice, detail string) (string, string) {
	var subject string
	switch event {
	case domain.NotifyInvoiceMatched:
		subject = fmt.Sprintf("Invoice %s matched", invoice.InvoiceNumber)
	case domain.NotifyInvoiceException:
		subject = fmt.Sprintf("Invoice %s needs review", invoice.InvoiceNumber)
	default:
		subject = fmt.Sprintf("Invoice %s: %s", invoice.InvoiceNumber, event)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Invoice:  %s\n", invoice.InvoiceNumber)
	fmt.Fprintf(&b, "Vendor:   %s (%s)\n", invoice.VendorName, invoice.VendorID)
	if invoice.PONumber != "" {
		fmt.Fprintf(&b, "PO:       %s\n", invoice.PONumber)
	}
	fmt.Fprintf(&b, "Amount:   %s %s\n", invoice.TotalAmount.StringFixed(2), invoice.Currency)
	fmt.Fprintf(&b, "Status:   %s\n", invoice.Status)
	fmt.Fprintf(&b, "\n%s\n", detail)
	return subject, b.String()
}
