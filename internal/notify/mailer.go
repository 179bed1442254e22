package notify

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const receiptSubject = "Bistro Boss order confirmation"

var receiptTemplate = template.Must(template.New("receipt").Parse(`<div>
<h2>Thank you for your order!</h2>
<p>Transaction id: <strong>{{.TransactionID}}</strong></p>
<p>Customer: {{.Email}}</p>
<p>Total: ${{printf "%.2f" .Price}}</p>
<p>Date: {{.Date.Format "2006-01-02 15:04 MST"}}</p>
<p>We would like to get your feedback about the food.</p>
</div>`))

// MailerConfig: параметры SMTP-сервера и адреса письма.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// To: адрес, на который уходят все квитанции.
	To string
}

// Mailer отправляет квитанции по SMTP.
type Mailer struct {
	client *mail.Client
	from   string
	to     string
}

// NewMailer создаёт SMTP-клиент. Соединение устанавливается при каждой отправке.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{client: client, from: cfg.From, to: cfg.To}, nil
}

// Send отправляет письмо с квитанцией.
func (m *Mailer) Send(ctx context.Context, r Receipt) error {
	msg, err := m.message(r)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send receipt mail: %w", err)
	}
	return nil
}

func (m *Mailer) message(r Receipt) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(receiptSubject)
	if err := msg.SetBodyHTMLTemplate(receiptTemplate, r); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return msg, nil
}

// NewSender возвращает SMTP-отправителя или, если почта не настроена, отправителя в лог.
func NewSender(cfg MailerConfig, logger *zap.Logger) (Sender, error) {
	if cfg.Host == "" || cfg.To == "" {
		return NewLogSender(logger), nil
	}
	return NewMailer(cfg)
}

// LogSender пишет квитанции в лог вместо отправки почты.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender создаёт отправителя, пишущего в лог.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send логирует квитанцию.
func (s *LogSender) Send(_ context.Context, r Receipt) error {
	s.logger.Info("receipt",
		zap.String("transaction_id", r.TransactionID),
		zap.String("email", r.Email),
		zap.Float64("price", r.Price),
	)
	return nil
}
