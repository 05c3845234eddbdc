package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"dramclub/internal/model"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// PaymentInstructions maps a payment method to the payee line shown in
	// pending registration mails, e.g. a PayPal address.
	PaymentInstructions map[string]string
}

type Message struct {
	To      string
	Subject string
	Body    string
}

// headerValue drops line breaks so a value cannot start a new header.
var headerValue = strings.NewReplacer("\r", "", "\n", "")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders notifications as plain text mail and sends them over SMTP.
type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send sendFunc
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

var templates = template.Must(template.New("registration_confirmed").Parse(registrationBody))

func init() {
	template.Must(templates.New("payment_confirmed").Parse(paymentBody))
}

const registrationBody = `Hello {{.AttendeeName}},

Thank you for registering for {{.EventTitle}}.

Date: {{.Date}}{{if .EventTime}}
Time: {{.EventTime}}{{end}}
Tickets: {{.TicketCount}} {{.TicketWord}}{{if .BroughtFriend}} (including your free friend seat){{end}}
{{if .FreeMembership}}
This registration is covered by your membership. No payment is needed.
{{else if eq .PaymentStatus "paid"}}
Your payment has been recorded. We look forward to seeing you.
{{else}}
Payment details
Amount due: ${{.TotalAmount}}
Method: {{.PaymentMethod}}{{if .Payee}}
Pay to: {{.Payee}}{{end}}
Memo: {{.Memo}}

Please include the memo so we can match your payment to your registration.
Your seats are confirmed once the payment is received.
{{end}}
Registration ID: {{.RegistrationID}}
`

const paymentBody = `Hello {{.AttendeeName}},

We received your payment for {{.EventTitle}}. Your registration is confirmed.

Date: {{.Date}}{{if .EventTime}}
Time: {{.EventTime}}{{end}}
Tickets: {{.TicketCount}} {{.TicketWord}}

Registration ID: {{.RegistrationID}}
`

type view struct {
	model.Notification
	Date       string
	TicketWord string
	Payee      string
}

// Render builds the mail for n without sending it.
func (m *Mailer) Render(n model.Notification) (Message, error) {
	var subject string
	switch n.Kind {
	case model.NotifyRegistrationConfirmed:
		subject = "Registration Confirmed: " + n.EventTitle
	case model.NotifyPaymentConfirmed:
		subject = "Payment Confirmed: " + n.EventTitle
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	v := view{
		Notification: n,
		Date:         n.EventDate.Format("Monday, January 2, 2006"),
		TicketWord:   "ticket",
		Payee:        m.cfg.PaymentInstructions[string(n.PaymentMethod)],
	}
	if n.TicketCount != 1 {
		v.TicketWord = "tickets"
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(n.Kind), v); err != nil {
		return Message{}, fmt.Errorf("render %s mail: %w", n.Kind, err)
	}
	return Message{
		To:      headerValue.Replace(n.To),
		Subject: headerValue.Replace(subject),
		Body:    body.String(),
	}, nil
}

func (m *Mailer) Send(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.Render(n)
	if err != nil {
		return err
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		headerValue.Replace(m.cfg.From), msg.To, msg.Subject, strings.ReplaceAll(msg.Body, "\n", "\r\n"),
	)
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, []byte(raw)); err != nil {
		m.log.Warn().Err(err).Str("email", msg.To).Str("kind", string(n.Kind)).Msg("failed to send email")
		return fmt.Errorf("%w: send email: %v", model.ErrNotificationFailure, err)
	}

	m.log.Info().Str("email", msg.To).Str("kind", string(n.Kind)).Str("registration_id", n.RegistrationID).Msg("email sent")
	return nil
}
