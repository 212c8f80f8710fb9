package mailer

import (
	"fmt"
	"log"
	"os"

	"github.com/IndSumit07/SPass/src/lib"
	"github.com/wneessen/go-mail"
)

type SendMailInput struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Enabled reports whether outbound mail is configured. Senders are
// best-effort: issuance and registration never fail on mail errors.
func Enabled() bool {
	return os.Getenv("SMTP_HOST") != ""
}

func Send(input *SendMailInput) error {
	c, err := lib.GetSMTPClient()
	if err != nil {
		return err
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "no-reply@spass.app"
	}
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return err
	}
	if err := m.To(input.To); err != nil {
		return err
	}
	m.Subject(input.Subject)
	m.SetBodyString(mail.TypeTextHTML, input.Body)
	return c.DialAndSend(m)
}

func SendWelcomeEmail(name, email string) {
	if !Enabled() {
		return
	}
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your SPass account is ready. You can now register for events and receive digital passes.</p>", name)
	if err := Send(&SendMailInput{To: email, ToName: name, Subject: "Welcome to SPass", Body: body}); err != nil {
		log.Printf("Error sending welcome email to %s: %s\n", email, err.Error())
	}
}

func SendPassIssuedEmail(name, email, eventName, passId string) {
	if !Enabled() {
		return
	}
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your pass <b>%s</b> for <b>%s</b> has been issued. Present the QR code on your pass at the entrance.</p>", name, passId, eventName)
	if err := Send(&SendMailInput{To: email, ToName: name, Subject: fmt.Sprintf("Your pass for %s", eventName), Body: body}); err != nil {
		log.Printf("Error sending pass email to %s: %s\n", email, err.Error())
	}
}
