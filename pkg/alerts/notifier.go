// Package alerts delivers stock alert notifications.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"

	"github.com/mbellec/retail-backoffice/pkg/money"
)

// StockAlert describes one product that crossed its reorder threshold.
type StockAlert struct {
	ProductID  string
	Name       string
	Category   string
	Price      decimal.Decimal
	Stock      float64
	MinStock   float64
	OutOfStock bool
}

// Notifier delivers a batch of stock alerts.
type Notifier interface {
	NotifyStockAlerts(ctx context.Context, alerts []StockAlert) error
}

// EmailNotifier sends alert digests through Resend.
type EmailNotifier struct {
	client *resend.Client
	from   string
	to     string
	logger *slog.Logger
}

// NewEmailNotifier creates a Resend-backed notifier.
func NewEmailNotifier(apiKey, from, to string, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
		logger: logger,
	}
}

// NotifyStockAlerts sends a single digest email for the batch.
func (n *EmailNotifier) NotifyStockAlerts(ctx context.Context, alerts []StockAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: fmt.Sprintf("Stock alerts: %d product(s) need attention", len(alerts)),
		Html:    digestHTML(alerts),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send stock alert email: %w", err)
	}

	n.logger.Info("stock alert email sent", slog.Int("alerts", len(alerts)))
	return nil
}

// digestHTML renders the alert batch as the email body, one line per product
// with its catalog price.
func digestHTML(alerts []StockAlert) string {
	var b strings.Builder
	b.WriteString("<h3>Stock alerts</h3><ul>")
	for _, a := range alerts {
		state := "low stock"
		if a.OutOfStock {
			state = "out of stock"
		}
		fmt.Fprintf(&b, "<li><strong>%s</strong> (%s, %s): %s, stock %.0f, threshold %.0f</li>",
			a.Name, a.Category, money.FormatEUR(a.Price), state, a.Stock, a.MinStock)
	}
	b.WriteString("</ul>")
	return b.String()
}

// NoopNotifier drops alerts; used when email is not configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyStockAlerts(context.Context, []StockAlert) error { return nil }
