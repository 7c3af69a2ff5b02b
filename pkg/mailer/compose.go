package mailer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

const dueDateLayout = "Mon, Jan 2, 2006"

// Compose renders r as an RFC 5322 plain-text message.
func Compose(from string, r Reminder, now time.Time) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", from, err)
	}
	toAddr, err := mail.ParseAddress(r.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", r.To, err)
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", []*mail.Address{toAddr})
	h.SetSubject(Subject(r))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, Body(r)); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}

func Subject(r Reminder) string {
	return fmt.Sprintf("Overdue %s: %s", strings.ToLower(r.Kind), r.Title)
}

func Body(r Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\r\n\r\n")
	fmt.Fprintf(&b, "The %s \"%s\" was due on %s and is not completed yet.\r\n",
		strings.ToLower(r.Kind), r.Title, r.DueDate.Format(dueDateLayout))
	if r.Link != "" {
		fmt.Fprintf(&b, "\r\nOpen it here: %s\r\n", r.Link)
	}
	fmt.Fprintf(&b, "\r\n-- Taskflow\r\n")
	return b.String()
}
