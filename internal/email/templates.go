package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

// Detail is one labelled row of the notification body.
type Detail struct {
	Label string
	Value string
}

// LeadNotification is the view model of every lead and deal notification.
type LeadNotification struct {
	RecipientName string
	Heading       string
	Intro         string
	ClientName    string
	Details       []Detail
	LeadURL       string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

type leadNotificationEmailData struct {
	baseEmailData
	Lead LeadNotification
}

// RenderLeadNotification renders the HTML body of a lead notification.
func RenderLeadNotification(n LeadNotification) (string, error) {
	data := leadNotificationEmailData{
		baseEmailData: baseEmailData{
			Title:   n.Heading,
			Heading: n.Heading,
		},
		Lead: n,
	}
	if n.LeadURL != "" {
		data.CTALabel = "Otevřít lead"
		data.CTAURL = n.LeadURL
	}
	return renderEmailTemplate("lead_notification.html", data)
}

// FormatCZK renders whole crowns with a space as the thousands separator.
func FormatCZK(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var out []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, digits[i])
	}
	return sign + string(out) + " Kč"
}
