package mail

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeMail(t *testing.T) {
	t.Parallel()

	msg := core.EmailMessage{
		From:    "watcher@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		CC:      []string{"c@example.com"},
		BCC:     []string{"hidden@example.com"},
		ReplyTo: []string{"ops@example.com"},
		Subject: "Disk\r\nBcc: injected@example.com",
		Body:    "line1\nline2",
		Attachments: []core.Attachment{
			{Name: "data.json", ContentType: "application/json", Data: []byte(`{"a":1}`)},
		},
	}
	out := string(composeMail(msg))

	tests := []struct {
		name string
		want string
	}{
		{name: "To", want: "To: a@example.com,b@example.com\r\n"},
		{name: "Cc", want: "Cc: c@example.com\r\n"},
		{name: "ReplyTo", want: "Reply-To: ops@example.com\r\n"},
		{name: "From", want: "From: watcher@example.com\r\n"},
		{name: "SubjectOnOneLine", want: "Subject: DiskBcc: injected@example.com\r\n"},
		{name: "Body", want: base64.StdEncoding.EncodeToString([]byte("line1<br />line2"))},
		{name: "AttachmentType", want: "Content-Type: application/json\r\n"},
		{name: "AttachmentName", want: `Content-Disposition: attachment; filename="data.json"`},
		{name: "AttachmentData", want: base64.StdEncoding.EncodeToString([]byte(`{"a":1}`))},
		{name: "Closing", want: "--" + boundary + "--\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, out, tt.want)
		})
	}

	assert.NotContains(t, out, "hidden@example.com")
	assert.False(t, strings.Contains(out, "\r\nBcc:"))
}

func TestSend_NoRecipients(t *testing.T) {
	t.Parallel()

	s := New(Config{Host: "localhost", Port: "25"})
	err := s.Send(context.Background(), core.EmailMessage{From: "a@example.com"})
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestSend_ConnectionRefused(t *testing.T) {
	t.Parallel()

	s := New(Config{Host: "127.0.0.1", Port: "1"})
	err := s.Send(context.Background(), core.EmailMessage{From: "a@example.com", To: []string{"b@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to SMTP server")
}
