package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
	gomail "gopkg.in/mail.v2"

	"github.com/sabis-tools/sabis/internal/config"
)

const dialTimeout = 10 * time.Second

// Dialer delivers prepared messages; *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender mails digests over SMTP.
type Sender struct {
	cfg    config.SMTPConfig
	dialer Dialer
}

// NewSender returns a Sender for cfg. A nil dialer dials cfg's server.
func NewSender(cfg config.SMTPConfig, dialer Dialer) *Sender {
	if dialer == nil {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		d.Timeout = dialTimeout
		dialer = d
	}
	return &Sender{cfg: cfg, dialer: dialer}
}

// Send delivers d as plain text with an HTML alternative. Empty digests
// and unconfigured senders are a no-op.
func (s *Sender) Send(d *Digest) error {
	if !s.cfg.Enabled() || d.Empty() {
		return nil
	}
	if len(s.cfg.To) == 0 {
		return fmt.Errorf("smtp: no recipients configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To...)
	m.SetHeader("Subject", d.Subject)
	m.SetBody("text/plain", d.Markdown)
	m.AddAlternative("text/html", d.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		logger.Error.Printf("digest mail to %s failed: %v", strings.Join(s.cfg.To, ", "), err)
		return fmt.Errorf("send digest: %w", err)
	}
	logger.Info.Printf("digest sent: %s", d.Subject)
	return nil
}
