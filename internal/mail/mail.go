// Package mail renders and delivers account emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// Message is a rendered email with text and HTML alternatives.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Dispatcher delivers a rendered message.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

const resetSubject = "Password Reset Code"

var resetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(`Hello {{.Name}},

Your password reset code is: {{.Code}}

This code expires in {{.Minutes}} minutes. If you did not request a reset, ignore this email.
`))

var resetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(`<html>
<body>
<p>Hello {{.Name}},</p>
<p>Your password reset code is:</p>
<h2 style="letter-spacing: 4px;">{{.Code}}</h2>
<p>This code expires in {{.Minutes}} minutes. If you did not request a reset, ignore this email.</p>
</body>
</html>
`))

type resetData struct {
	Name    string
	Code    string
	Minutes int
}

// ResetCodeMessage renders the password reset email.
func ResetCodeMessage(to, name, code string, ttl time.Duration) (Message, error) {
	data := resetData{Name: name, Code: code, Minutes: int(ttl.Minutes())}

	var text, html bytes.Buffer
	if err := resetText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render reset email: %w", err)
	}
	if err := resetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render reset email: %w", err)
	}

	return Message{To: to, Subject: resetSubject, Text: text.String(), HTML: html.String()}, nil
}
