package outreach

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// Mailer writes drafts as .eml files and sends mail through a gomail.Sender.
type Mailer struct {
	From     string
	FromName string
	ReplyTo  string
	// DraftDir receives one .eml file per draft.
	DraftDir string
	// TrackingDomain, when set, adds an open-tracking pixel served from
	// <TrackingDomain>/track/<token>/open.gif to sent mail.
	TrackingDomain string

	sender gomail.Sender
	now    func() time.Time
}

var _ Deliverer = (*Mailer)(nil)

// SMTPConfig configures an SMTP relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NewMailer creates a mailer sending through sender. A nil sender makes Send
// fail, which keeps drafts-only setups honest.
func NewMailer(from, fromName, draftDir string, sender gomail.Sender) *Mailer {
	return &Mailer{
		From:     from,
		FromName: fromName,
		DraftDir: draftDir,
		sender:   sender,
		now:      time.Now,
	}
}

// NewSMTPMailer creates a mailer that dials cfg for every message.
func NewSMTPMailer(from, fromName, draftDir string, cfg SMTPConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewMailer(from, fromName, draftDir, dialSender{d})
}

type dialSender struct {
	d *gomail.Dialer
}

func (s dialSender) Send(from string, to []string, msg io.WriterTo) error {
	c, err := s.d.Dial()
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Send(from, to, msg)
}

func (m *Mailer) compose(msg Message, token string) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.From, m.FromName)
	gm.SetAddressHeader("To", msg.To, msg.ToName)
	if m.ReplyTo != "" {
		gm.SetHeader("Reply-To", m.ReplyTo)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetDateHeader("Date", m.now())
	if msg.LeadID != "" {
		gm.SetHeader("X-Lead-Id", msg.LeadID)
	}
	gm.SetBody("text/plain", msg.Body)
	gm.AddAlternative("text/html", htmlBody(msg.Body)+m.trackingPixel(token))
	return gm
}

func (m *Mailer) trackingPixel(token string) string {
	if m.TrackingDomain == "" || token == "" {
		return ""
	}
	src := fmt.Sprintf("%s/track/%s/open.gif", strings.TrimRight(m.TrackingDomain, "/"), token)
	return fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none;" />`, src)
}

// htmlBody turns plain text paragraphs into HTML.
func htmlBody(text string) string {
	var sb strings.Builder
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

// CreateDraft implements Deliverer.
func (m *Mailer) CreateDraft(ctx context.Context, msg Message) (Draft, error) {
	if err := msg.Validate(); err != nil {
		return Draft{}, err
	}
	if err := ctx.Err(); err != nil {
		return Draft{}, err
	}
	if err := os.MkdirAll(m.DraftDir, 0o755); err != nil {
		return Draft{}, fmt.Errorf("failed to create draft dir: %w", err)
	}

	id := fmt.Sprintf("%s-%d", safeName(orDefault(msg.LeadID, msg.To)), m.now().UnixNano())
	path := filepath.Join(m.DraftDir, id+".eml")
	f, err := os.Create(path)
	if err != nil {
		return Draft{}, fmt.Errorf("failed to create draft: %w", err)
	}
	if _, err := m.compose(msg, "").WriteTo(f); err != nil {
		f.Close()
		return Draft{}, fmt.Errorf("failed to write draft: %w", err)
	}
	if err := f.Close(); err != nil {
		return Draft{}, fmt.Errorf("failed to write draft: %w", err)
	}
	return Draft{ID: id, Location: path}, nil
}

// Send implements Deliverer.
func (m *Mailer) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if m.sender == nil {
		return Receipt{}, fmt.Errorf("no mail sender configured")
	}

	token := NewTrackingToken()
	if err := gomail.Send(m.sender, m.compose(msg, token)); err != nil {
		return Receipt{}, fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return Receipt{ID: token, TrackingToken: token, SentAt: m.now()}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
