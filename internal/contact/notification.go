package contact

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/powermaps/contact/internal/dto"
)

var htmlBody = htmltemplate.Must(htmltemplate.New("contact.html").Parse(`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>
<hr>
<p><small>Submitted {{.SubmittedAt}} · reference {{.ID}}</small></p>
`))

var textBody = texttemplate.Must(texttemplate.New("contact.txt").Parse(`New Contact Form Submission

Name: {{.Name}}
Email: {{.Email}}
Subject: {{.Subject}}

{{.Message}}

--
Submitted {{.SubmittedAt}}, reference {{.ID}}
`))

type notificationData struct {
	ID          string
	Name        string
	Email       string
	Subject     string
	Message     string
	SubmittedAt string
}

// NotificationSubject is the subject line of the email sent to the site owner.
func NotificationSubject(subject string) string {
	return "Contact Form: " + subject
}

// RenderNotification builds the html and text bodies for a submission.
// Values are escaped in the html body.
func RenderNotification(id string, req *dto.ContactRequest, at time.Time) (html, text string, err error) {
	data := notificationData{
		ID:          id,
		Name:        req.Name,
		Email:       req.Email,
		Subject:     req.Subject,
		Message:     req.Message,
		SubmittedAt: at.UTC().Format(time.RFC1123),
	}

	var hb, tb bytes.Buffer
	if err := htmlBody.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	if err := textBody.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return hb.String(), tb.String(), nil
}
