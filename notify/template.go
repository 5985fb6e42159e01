// notify/template.go
package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/dalemusser/contactform/submission"
)

// TimestampLayout formats the server-side submission time.
const TimestampLayout = "2006-01-02 15:04:05"

type bodyData struct {
	submission.Submission
	SubmittedAt string
}

var funcs = map[string]any{
	"lines": func(s string) []string {
		return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	},
}

var htmlTpl = htmltemplate.Must(htmltemplate.New("notification.html").
	Funcs(htmltemplate.FuncMap(funcs)).
	Parse(htmlSource))

var textTpl = texttemplate.Must(texttemplate.New("notification.txt").
	Funcs(texttemplate.FuncMap(funcs)).
	Parse(textSource))

func renderBodies(s submission.Submission, at time.Time) (string, string, error) {
	data := bodyData{Submission: s, SubmittedAt: at.Format(TimestampLayout)}

	var hb bytes.Buffer
	if err := htmlTpl.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("notify: render html body: %w", err)
	}

	var tb bytes.Buffer
	if err := textTpl.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("notify: render text body: %w", err)
	}

	return hb.String(), tb.String(), nil
}

const htmlSource = `<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; border: 1px solid #ddd; border-radius: 5px; padding: 20px; }
        .header { background-color: #0d6efd; color: white; padding: 20px; border-radius: 5px 5px 0 0; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .field { margin-bottom: 15px; border-bottom: 1px solid #ddd; padding-bottom: 10px; }
        .field-label { font-weight: bold; color: #0d6efd; }
        .field-value { margin-top: 5px; }
        .footer { background-color: #f1f1f1; padding: 10px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h2>New Contact Form Submission</h2>
        </div>
        <div class="content">
            <div class="field">
                <div class="field-label">Full Name:</div>
                <div class="field-value">{{.FullName}}</div>
            </div>
            <div class="field">
                <div class="field-label">Email Address:</div>
                <div class="field-value"><a href="mailto:{{.Email}}">{{.Email}}</a></div>
            </div>
            <div class="field">
                <div class="field-label">Phone Number:</div>
                <div class="field-value"><a href="tel:{{.Phone}}">{{.Phone}}</a></div>
            </div>
            <div class="field">
                <div class="field-label">Company Name:</div>
                <div class="field-value">{{if .Company}}{{.Company}}{{else}}Not provided{{end}}</div>
            </div>
            <div class="field">
                <div class="field-label">Subject:</div>
                <div class="field-value">{{.Subject}}</div>
            </div>
            <div class="field">
                <div class="field-label">Message:</div>
                <div class="field-value">{{range $i, $l := lines .Message}}{{if $i}}<br>
{{end}}{{$l}}{{end}}</div>
            </div>
            <div class="field" style="border-bottom: none;">
                <div class="field-label">Submission Date &amp; Time:</div>
                <div class="field-value">{{.SubmittedAt}}</div>
            </div>
        </div>
        <div class="footer">
            <p>This is an automated email. Please reply to the sender's email address to respond.</p>
        </div>
    </div>
</body>
</html>
`

const textSource = `New Contact Form Submission

Full Name:      {{.FullName}}
Email Address:  {{.Email}}
Phone Number:   {{.Phone}}
Company Name:   {{if .Company}}{{.Company}}{{else}}Not provided{{end}}
Subject:        {{.Subject}}

Message:
{{.Message}}

Submitted: {{.SubmittedAt}}

This is an automated email. Please reply to the sender's email address to respond.
`
