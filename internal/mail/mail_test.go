package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResetCodeMessage(t *testing.T) {
	msg, err := ResetCodeMessage("a@example.com", "<Asha>", "012345", 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", msg.To)
	require.Equal(t, "Password Reset Code", msg.Subject)
	require.Contains(t, msg.Text, "012345")
	require.Contains(t, msg.Text, "15 minutes")
	require.Contains(t, msg.HTML, "&lt;Asha&gt;")
	require.Contains(t, msg.HTML, "012345")
}

func TestSMTPDispatcher(t *testing.T) {
	d := NewSMTPDispatcher(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com"})

	var gotAddr string
	var gotTo []string
	var gotBody string
	d.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		require.NotNil(t, a)
		require.Equal(t, "noreply@example.com", from)
		return nil
	}

	err := d.Send(context.Background(), Message{To: "t@example.com", Subject: "Hi", Text: "plain", HTML: "<b>rich</b>"})
	require.NoError(t, err)
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.Equal(t, []string{"t@example.com"}, gotTo)
	require.Contains(t, gotBody, "multipart/alternative")
	require.True(t, strings.Contains(gotBody, "plain") && strings.Contains(gotBody, "<b>rich</b>"))

	d.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }
	err = d.Send(context.Background(), Message{To: "t@example.com"})
	require.ErrorContains(t, err, "relay down")
}

func TestLogDispatcher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewLogDispatcher(zap.New(core))

	require.NoError(t, d.Send(context.Background(), Message{To: "x@example.com", Subject: "s", Text: "body"}))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "x@example.com", logs.All()[0].ContextMap()["to"])
}
