package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"almeone-contact-api/internal/domain"

	"github.com/samber/lo"
)

type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
)

var (
	urgentKeywords = []string{"urgent", "asap", "emergency", "critical", "immediate"}
	highKeywords   = []string{"partnership", "enterprise", "large"}
)

// ClassifyPriority derives an admin-facing priority from subject keywords.
func ClassifyPriority(subject string) Priority {
	s := strings.ToLower(subject)
	contains := func(k string) bool { return strings.Contains(s, k) }

	switch {
	case lo.SomeBy(urgentKeywords, contains):
		return PriorityUrgent
	case lo.SomeBy(highKeywords, contains):
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

func (p Priority) Color() string {
	switch p {
	case PriorityUrgent:
		return "#dc3545"
	case PriorityHigh:
		return "#ffc107"
	default:
		return "#28a745"
	}
}

const maxUserAgentLen = 100

type templateData struct {
	Name          string
	Email         string
	Company       string
	Phone         string
	Subject       string
	Message       string
	ReferenceID   string
	Priority      Priority
	PriorityColor string
	SubmittedAt   string
	ClientIP      string
	UserAgent     string
	Origin        string
	RequestID     string
	Environment   string
}

const adminTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Contact Form Submission - AlmeOne</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #ECAF26, #B8860B); color: white; padding: 24px; text-align: center; }
        .content { padding: 24px; background: #f8f9fa; }
        .card { background: white; padding: 16px; border-left: 4px solid {{.PriorityColor}}; margin-bottom: 16px; }
        .label { font-weight: 600; color: #555; width: 110px; padding: 6px 0; vertical-align: top; }
        .message { white-space: pre-wrap; line-height: 1.7; color: #444; }
        .meta { font-size: 12px; color: #888; }
        .badge { background: {{.PriorityColor}}; color: white; padding: 3px 8px; border-radius: 4px; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>New Contact Form Submission</h1>
            <div>Reference: {{.ReferenceID}}</div>
        </div>
        <div class="content">
            <div class="card">
                <table>
                    <tr><td class="label">Name:</td><td>{{.Name}}</td></tr>
                    <tr><td class="label">Email:</td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
                    <tr><td class="label">Company:</td><td>{{if .Company}}{{.Company}}{{else}}Not specified{{end}}</td></tr>
                    <tr><td class="label">Phone:</td><td>{{if .Phone}}{{.Phone}}{{else}}Not specified{{end}}</td></tr>
                    <tr><td class="label">Subject:</td><td>{{if .Subject}}{{.Subject}}{{else}}General Inquiry{{end}}</td></tr>
                    <tr><td class="label">Priority:</td><td><span class="badge">{{.Priority}}</span></td></tr>
                </table>
            </div>
            <div class="card">
                <h3>Message</h3>
                <div class="message">{{.Message}}</div>
            </div>
            <div class="meta">
                <p>Submitted: {{.SubmittedAt}}</p>
                <p>Client IP: {{.ClientIP}} | Origin: {{if .Origin}}{{.Origin}}{{else}}unknown{{end}}</p>
                <p>User agent: {{.UserAgent}}</p>
                <p>Request ID: {{.RequestID}} | Environment: {{.Environment}}</p>
            </div>
        </div>
    </div>
</body>
</html>`

const customerTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Thank You for Contacting AlmeOne</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #ECAF26, #B8860B); color: white; padding: 30px 20px; text-align: center; }
        .content { padding: 30px 20px; background: #f8f9fa; }
        .footer { padding: 20px; text-align: center; background: #343a40; color: white; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Thank You for Contacting AlmeOne</h1>
            <p>Your inquiry has been received</p>
        </div>
        <div class="content">
            <p>Dear {{.Name}},</p>
            <p>Thank you for reaching out to <strong>AlmeOne</strong>. We have received your inquiry and our team will review it promptly.</p>
            <p><strong>Your Reference ID:</strong> {{.ReferenceID}}</p>
            <p><strong>Next Steps:</strong></p>
            <ul>
                <li>Our team will review your inquiry within 24 hours</li>
                <li>You will receive a personalized response from our experts</li>
                <li>For urgent matters, please call us at +974 33920094</li>
            </ul>
            <p>Best regards,<br><strong>The AlmeOne Team</strong></p>
        </div>
        <div class="footer">
            <p><strong>AlmeOne - Unified Intelligence for a Digital World</strong></p>
            <p>Qatar: +974 33920094 | info@almeone.com</p>
        </div>
    </div>
</body>
</html>`

// Renderer builds the admin notification and customer acknowledgement.
// All user supplied values are HTML-escaped by html/template.
type Renderer struct {
	admin       *template.Template
	customer    *template.Template
	location    *time.Location
	environment string
}

func NewRenderer(environment string, location *time.Location) *Renderer {
	if location == nil {
		location = time.UTC
	}
	return &Renderer{
		admin:       template.Must(template.New("admin").Parse(adminTemplate)),
		customer:    template.Must(template.New("customer").Parse(customerTemplate)),
		location:    location,
		environment: environment,
	}
}

// AdminSubject is "[AlmeOne Contact] <subject> - Ref: <id>", prefixed with
// the priority when it is above normal.
func AdminSubject(sub domain.Submission) string {
	subject := singleLine(sub.Request.Subject)
	if subject == "" {
		subject = "New Inquiry"
	}
	line := fmt.Sprintf("[AlmeOne Contact] %s - Ref: %s", subject, sub.ReferenceID)
	if p := ClassifyPriority(sub.Request.Subject); p != PriorityNormal {
		line = fmt.Sprintf("[%s] %s", p, line)
	}
	return line
}

func CustomerSubject(sub domain.Submission) string {
	return fmt.Sprintf("Thank you for contacting AlmeOne - Ref: %s", sub.ReferenceID)
}

func (r *Renderer) AdminMessage(sub domain.Submission, to string) (Message, error) {
	html, err := r.render(r.admin, sub)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       to,
		ReplyTo:  sub.Request.Email,
		Subject:  AdminSubject(sub),
		HTMLBody: html,
		Tag:      "admin-notification",
	}, nil
}

func (r *Renderer) CustomerMessage(sub domain.Submission) (Message, error) {
	html, err := r.render(r.customer, sub)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       sub.Request.Email,
		Subject:  CustomerSubject(sub),
		HTMLBody: html,
		Tag:      "customer-ack",
	}, nil
}

func (r *Renderer) render(t *template.Template, sub domain.Submission) (string, error) {
	priority := ClassifyPriority(sub.Request.Subject)
	data := templateData{
		Name:          sub.Request.Name,
		Email:         sub.Request.Email,
		Company:       sub.Request.Company,
		Phone:         sub.Request.Phone,
		Subject:       sub.Request.Subject,
		Message:       sub.Request.Message,
		ReferenceID:   sub.ReferenceID,
		Priority:      priority,
		PriorityColor: priority.Color(),
		SubmittedAt:   sub.SubmittedAt.In(r.location).Format("January 2, 2006 at 03:04 PM") + " (" + r.location.String() + ")",
		ClientIP:      sub.Meta.ClientIP,
		UserAgent:     truncateRunes(sub.Meta.UserAgent, maxUserAgentLen),
		Origin:        sub.Meta.Origin,
		RequestID:     sub.Meta.RequestID,
		Environment:   r.environment,
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", t.Name(), err)
	}
	return body.String(), nil
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
