package main

import (
	"bytes"
	"html/template"
	"log"

	"github.com/go-mail/mail/v2"
)

type mailer struct {
	dailer *mail.Dialer
	sender string
}

func newMailer(host string, port int, username string, password string, sender string) *mailer {
	dailer := mail.NewDialer(host, port, username, password)
	return &mailer{
		dailer: dailer,
		sender: sender,
	}
}

func (m *mailer) send(to string, tmpl *template.Template, data any) error {
	var subject bytes.Buffer
	err := tmpl.ExecuteTemplate(&subject, "subject", data)
	if err != nil {
		return err
	}
	var plainBody bytes.Buffer
	err = tmpl.ExecuteTemplate(&plainBody, "plainBody", data)
	if err != nil {
		return err
	}
	var htmlBody bytes.Buffer
	err = tmpl.ExecuteTemplate(&htmlBody, "htmlBody", data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.SetBody("text/html", htmlBody.String())

	for i := 0; i < 3; i++ {
		err = m.dailer.DialAndSend(msg)
		if err == nil {
			break
		}
	}
	return err
}

var assignmentTemplate = template.Must(template.New("assignment").Parse(`
{{define "subject"}}You have been assigned a task: {{.Title}}{{end}}

{{define "plainBody"}}
Hi {{.AssigneeName}},

The task "{{.Title}}" ({{.Priority}} priority) has been assigned to you.

{{.Description}}
{{end}}

{{define "htmlBody"}}
<html>
<body>
<p>Hi {{.AssigneeName}},</p>
<p>The task <strong>{{.Title}}</strong> ({{.Priority}} priority) has been assigned to you.</p>
<p>{{.Description}}</p>
</body>
</html>
{{end}}
`))

// notifyAssignee mails the assignee when a task gains one or changes
// hands. Sending is best-effort and never blocks the request.
func (app *application) notifyAssignee(t *task, prevAssignee *int64) {
	if app.mailer == nil || t.AssigneeID == nil {
		return
	}
	if prevAssignee != nil && *prevAssignee == *t.AssigneeID {
		return
	}
	assignee, err := app.storage.getUserByID(*t.AssigneeID)
	if err != nil || assignee == nil {
		log.Printf("could not resolve assignee %d for notification: %v", *t.AssigneeID, err)
		return
	}
	go func() {
		data := struct {
			AssigneeName string
			Title        string
			Description  string
			Priority     taskPriority
		}{
			AssigneeName: assignee.FullName,
			Title:        t.Title,
			Description:  t.Description,
			Priority:     t.Priority,
		}
		if err := app.mailer.send(assignee.Email, assignmentTemplate, data); err != nil {
			log.Printf("failed to send assignment notification to %s: %v", assignee.Email, err)
		}
	}()
}
