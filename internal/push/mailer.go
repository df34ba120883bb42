package push

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

// Sender envía un email de texto plano.
type Sender interface {
	Send(to, subject, textBody string) error
}

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host    string
	Port    int
	From    string
	User    string
	Pass    string
	TLSMode string // "auto" | "starttls" | "ssl" | "none"
}

func (s *SMTPSender) Send(to, subject, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} // solo dev
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Mailer anuncia inicio y fin de mantenimiento por email. El envío es
// asíncrono: Broadcast vuelve enseguida.
type Mailer struct {
	sender     Sender
	recipients []string

	wg sync.WaitGroup
}

var _ maintenance.ClientPush = (*Mailer)(nil)

func NewMailer(sender Sender, recipients []string) *Mailer {
	return &Mailer{sender: sender, recipients: recipients}
}

func (m *Mailer) Broadcast(ctx context.Context, event string, payload any) error {
	if m.sender == nil || len(m.recipients) == 0 {
		return nil
	}
	notice, ok := payload.(maintenance.ClientNotice)
	if !ok {
		return fmt.Errorf("push: mailer: unexpected payload %T", payload)
	}
	subject, body := render(notice)
	log := logger.From(ctx).With(logger.Component("push.mailer"), logger.Event(event))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		var errs []error
		for _, to := range m.recipients {
			if err := m.sender.Send(to, subject, body); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", to, err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			log.Warn("maintenance announcement failed", logger.Err(err))
			return
		}
		log.Info("maintenance announcement sent", logger.Count(len(m.recipients)))
	}()
	return nil
}

// Wait bloquea hasta que terminan los envíos en curso.
func (m *Mailer) Wait() { m.wg.Wait() }

func render(n maintenance.ClientNotice) (subject, body string) {
	var b strings.Builder
	if n.Record == nil {
		subject = "[tollgate] Fin de mantenimiento"
		b.WriteString("El mantenimiento terminó. El servicio opera con normalidad.\n")
		return subject, b.String()
	}
	subject = "[tollgate] Mantenimiento en curso"
	b.WriteString("Se declaró un mantenimiento.\n\n")
	if !n.Record.Start.IsZero() {
		fmt.Fprintf(&b, "Inicio: %s\n", n.Record.Start.UTC().Format(time.RFC3339))
	}
	if !n.Record.End.IsZero() {
		fmt.Fprintf(&b, "Fin estimado: %s\n", n.Record.End.UTC().Format(time.RFC3339))
	}
	if msg := strings.TrimSpace(n.Record.Message); msg != "" {
		fmt.Fprintf(&b, "\n%s\n", msg)
	}
	return subject, b.String()
}
