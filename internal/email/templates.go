package email

import (
	"bytes"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
	"time"
)

var (
	accessCodeHTML = htmltpl.Must(htmltpl.New("access_code_html").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>Your {{.Role}} sign-in code</h2>
<p>Use the code below to finish signing in to the admin dashboard.</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.Code}}</p>
<p>The code expires in {{.TTL}}. If you did not try to sign in, you can ignore this email.</p>
</body></html>`))

	accessCodeText = texttpl.Must(texttpl.New("access_code_txt").Parse(`Your {{.Role}} sign-in code: {{.Code}}

The code expires in {{.TTL}}. If you did not try to sign in, you can ignore this email.
`))

	contactHTML = htmltpl.Must(htmltpl.New("contact_html").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>New contact request</h2>
<p><strong>{{.Name}}</strong> &lt;{{.Email}}&gt;{{if .Company}} from {{.Company}}{{end}}</p>
{{if .Phone}}<p>Phone: {{.Phone}}</p>{{end}}
<p style="white-space:pre-wrap">{{.Message}}</p>
</body></html>`))

	contactText = texttpl.Must(texttpl.New("contact_txt").Parse(`New contact request

From: {{.Name}} <{{.Email}}>{{if .Company}}
Company: {{.Company}}{{end}}{{if .Phone}}
Phone: {{.Phone}}{{end}}

{{.Message}}
`))
)

type AccessCodeVars struct {
	Email string
	Code  string
	Role  string
	TTL   time.Duration
}

type ContactVars struct {
	Name    string
	Email   string
	Company string
	Phone   string
	Message string
}

// AccessCodeMessage renders the one-time sign-in code email.
func AccessCodeMessage(v AccessCodeVars) (Message, error) {
	data := struct {
		Code string
		Role string
		TTL  string
	}{v.Code, v.Role, formatTTL(v.TTL)}

	html, text, err := render(accessCodeHTML, accessCodeText, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       v.Email,
		Subject:  "Your sign-in code",
		HTMLBody: html,
		TextBody: text,
	}, nil
}

// ContactMessage renders the staff notification for a contact form submission.
// Replies go straight to the sender.
func ContactMessage(to string, v ContactVars) (Message, error) {
	html, text, err := render(contactHTML, contactText, v)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       to,
		Subject:  "Contact request from " + v.Name,
		HTMLBody: html,
		TextBody: text,
		ReplyTo:  v.Email,
	}, nil
}

func render(h *htmltpl.Template, t *texttpl.Template, data any) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func formatTTL(d time.Duration) string {
	minutes := int(d.Round(time.Minute).Minutes())
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
