package mailer

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"taskflow/pkg/config"
	"taskflow/pkg/logger"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReminder() Reminder {
	return Reminder{
		To:       "alice@example.com",
		Kind:     "Project",
		Title:    "Website relaunch",
		DueDate:  time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC),
		EntityID: "project-1",
		Link:     "http://localhost:3000/projects/project-1",
	}
}

func TestCompose_RoundTripsThroughMailReader(t *testing.T) {
	raw, err := Compose("Taskflow <no-reply@taskflow.local>", sampleReminder(), time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Overdue project: Website relaunch", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "alice@example.com", to[0].Address)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Mon, Mar 4, 2030")
	assert.Contains(t, string(body), "http://localhost:3000/projects/project-1")
}

func TestCompose_InvalidRecipient(t *testing.T) {
	r := sampleReminder()
	r.To = "not an address"

	_, err := Compose("no-reply@taskflow.local", r, time.Now())
	assert.Error(t, err)
}

func TestBody_WithoutLink(t *testing.T) {
	r := sampleReminder()
	r.Link = ""

	assert.NotContains(t, Body(r), "Open it here")
}

func TestNew_FallsBackToLogSender(t *testing.T) {
	sender := New(&config.Config{}, logger.New())

	_, ok := sender.(*LogSender)
	assert.True(t, ok)
	assert.NoError(t, sender.SendReminder(context.Background(), sampleReminder()))
}

func TestNew_UsesSMTPWhenConfigured(t *testing.T) {
	sender := New(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587"}, logger.New())

	_, ok := sender.(*SMTPSender)
	assert.True(t, ok)
}
