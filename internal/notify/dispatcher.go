package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/rs/zerolog"
)

// Dispatcher composes and sends notifications. All sends are best-effort:
// errors are returned so the caller can record the failed attempt, but the
// order flow never blocks on them.
type Dispatcher struct {
	sender      Sender
	fromAddress string
	fromName    string
	opsAddress  string
	templates   *template.Template
	logger      zerolog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(sender Sender, fromAddress, fromName, opsAddress string, logger zerolog.Logger) (*Dispatcher, error) {
	tmpl, err := template.New("notify").Parse(noticeTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}
	return &Dispatcher{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		opsAddress:  opsAddress,
		templates:   tmpl,
		logger:      logger.With().Str("component", "notify").Logger(),
	}, nil
}

// NotifyCustomer renders and sends a customer-facing notice.
func (d *Dispatcher) NotifyCustomer(ctx context.Context, to string, notice Notice) error {
	if to == "" {
		return ErrMissingRecipient
	}
	return d.send(ctx, []string{to}, notice)
}

// NotifyOps renders and sends an operations notice to the configured
// team address.
func (d *Dispatcher) NotifyOps(ctx context.Context, notice Notice) error {
	if d.opsAddress == "" {
		return ErrMissingRecipient
	}
	return d.send(ctx, []string{d.opsAddress}, notice)
}

func (d *Dispatcher) send(ctx context.Context, to []string, notice Notice) error {
	var body bytes.Buffer
	if err := d.templates.ExecuteTemplate(&body, notice.TemplateName(), notice); err != nil {
		return fmt.Errorf("failed to render %s: %w", notice.TemplateName(), err)
	}

	msg := &Message{
		To:       to,
		From:     fmt.Sprintf("%s <%s>", d.fromName, d.fromAddress),
		Subject:  notice.Subject(),
		TextBody: body.String(),
	}
	if _, err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Warn().Err(err).Str("template", notice.TemplateName()).Strs("to", to).Msg("notification send failed")
		return fmt.Errorf("failed to send %s: %w", notice.TemplateName(), err)
	}
	return nil
}

// Plain-text bodies. Customer notices are in Romanian, ops notices keep
// to the short internal format.
const noticeTemplates = `
{{define "order_confirmed" -}}
Buna {{.CustomerName}},

Am inregistrat comanda {{.OrderNumber}}.
{{range .Lines}}  {{.Quantity}} x {{.Name}} ... {{.LineTotal.StringFixed 2}} RON
{{end}}
Subtotal: {{.Subtotal.StringFixed 2}} RON
{{- if .Discount.IsPositive}}
Reducere: -{{.Discount.StringFixed 2}} RON
{{- end}}
Livrare:  {{.ShippingFee.StringFixed 2}} RON
Total:    {{.Total.StringFixed 2}} RON
{{if .CashOnDelivery}}
Plata se face ramburs la curier: {{.CODAmount.StringFixed 2}} RON.
{{- else}}
Plata a fost confirmata. Factura urmeaza pe email.
{{- end}}

Echipa Printera
{{- end}}

{{define "order_shipped" -}}
Buna {{.CustomerName}},

Comanda {{.OrderNumber}} a fost predata catre {{.Carrier}}.
AWB: {{.AWB}}
Urmarire: {{.TrackingURL}}

Echipa Printera
{{- end}}

{{define "payment_failed" -}}
Buna {{.CustomerName}},

Plata pentru comanda {{.OrderNumber}} nu a fost finalizata.
Poti relua plata aici: {{.RetryURL}}

Echipa Printera
{{- end}}

{{define "ops_new_order" -}}
Comanda {{.OrderNumber}} ({{.Channel}}): {{.ItemCount}} articole, {{.Total.StringFixed 2}} RON{{if .CashOnDelivery}}, ramburs{{end}}.
{{- end}}

{{define "ops_task_failed" -}}
{{.Task}} pentru comanda {{.OrderNumber}} a esuat dupa retry-uri.
Ultima eroare: {{.LastError}}
{{- end}}
`
