package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Message is a notification about one summarized entry
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a message to its recipients
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// MessageComposer renders the subject and plain-text body for an entry
type MessageComposer struct {
	subjectPrefix string
	body          *template.Template
}

type messageData struct {
	Title     string
	Link      string
	Channel   string
	Published string
	Summary   string
}

// NewMessageComposer parses the body template
func NewMessageComposer(subjectPrefix, bodyTemplate string) (*MessageComposer, error) {
	tmpl, err := template.New("email").Parse(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing email template: %w", err)
	}
	return &MessageComposer{subjectPrefix: subjectPrefix, body: tmpl}, nil
}

// Compose builds the message for entry and its summary
func (c *MessageComposer) Compose(entry FeedEntry, summary string) (Message, error) {
	published := "N/A"
	switch {
	case entry.PublishedAt != nil:
		published = entry.PublishedAt.Local().Format("2006-01-02 15:04")
	case entry.PublishedRaw != "":
		published = entry.PublishedRaw
	}

	var buf bytes.Buffer
	err := c.body.Execute(&buf, messageData{
		Title:     entry.Title,
		Link:      entry.Link,
		Channel:   entry.Channel,
		Published: published,
		Summary:   summary,
	})
	if err != nil {
		return Message{}, fmt.Errorf("executing email template: %w", err)
	}

	subject := entry.Title
	if c.subjectPrefix != "" {
		subject = c.subjectPrefix + " " + entry.Title
	}
	return Message{Subject: subject, Body: buf.String()}, nil
}

// EmailNotifier sends messages as multipart text + HTML email
type EmailNotifier struct {
	from       mail.Address
	recipients []mail.Address
	sender     enmime.Sender
	markdown   goldmark.Markdown
	policy     *bluemonday.Policy
}

// NewEmailNotifier creates a notifier that sends through sender
func NewEmailNotifier(from string, recipients []string, sender enmime.Sender) (*EmailNotifier, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	if len(recipients) == 0 {
		return nil, errors.New("at least one recipient is required")
	}

	toAddrs := make([]mail.Address, 0, len(recipients))
	for _, r := range recipients {
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient address %q: %w", r, err)
		}
		toAddrs = append(toAddrs, *addr)
	}

	return &EmailNotifier{
		from:       *fromAddr,
		recipients: toAddrs,
		sender:     sender,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}, nil
}

// NewSMTPSender returns an enmime sender using PLAIN auth against host:port
func NewSMTPSender(settings EmailSettings, username, password string) enmime.Sender {
	addr := net.JoinHostPort(settings.SMTPHost, strconv.Itoa(settings.SMTPPort))
	auth := smtp.PlainAuth("", username, password, settings.SMTPHost)
	return enmime.NewSMTP(addr, auth)
}

// Notify renders the HTML alternative and sends the message
func (n *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	htmlBody, err := n.renderHTML(msg.Body)
	if err != nil {
		return fmt.Errorf("rendering HTML body: %w", err)
	}

	err = enmime.Builder().
		From(n.from.Name, n.from.Address).
		ToAddrs(n.recipients).
		Subject(msg.Subject).
		Date(time.Now()).
		Text([]byte(msg.Body)).
		HTML(htmlBody).
		Send(n.sender)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	debugLog("Email sent: %s → %d recipients", n.from.Address, len(n.recipients))
	return nil
}

const htmlDocument = `<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
h1, h2, h3 { color: #2c3e50; }
ul, ol { margin-left: 20px; }
strong { color: #e74c3c; }
code { background-color: #f4f4f4; padding: 2px 5px; border-radius: 3px; }
</style>
</head>
<body>
%s
</body>
</html>
`

// renderHTML converts the markdown body to sanitized HTML
func (n *EmailNotifier) renderHTML(body string) ([]byte, error) {
	var buf bytes.Buffer
	if err := n.markdown.Convert([]byte(body), &buf); err != nil {
		return nil, err
	}
	safe := n.policy.SanitizeBytes(buf.Bytes())
	return []byte(fmt.Sprintf(htmlDocument, safe)), nil
}

// LogNotifier only logs messages; used for dry runs
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, msg Message) error {
	log.Printf("  [dry-run] Would send %q (%d chars)", msg.Subject, len(msg.Body))
	debugLog("Body:\n%s", msg.Body)
	return nil
}

// ParseRecipients splits a comma separated address list
func ParseRecipients(list string) []string {
	var recipients []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return recipients
}
