package mailer

import (
	"fmt"
	"strings"

	"smartfeed-be/pkg/engine/digest"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendDigest(toEmail string, d digest.Digest) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

// SendDigest emails the categorized summary for scheduled batch mode.
func (s *emailService) SendDigest(toEmail string, d digest.Digest) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("%s - %d updates waiting", d.Greeting, d.TotalPending))

	var sections strings.Builder
	for _, cat := range d.Categories {
		sections.WriteString(fmt.Sprintf("<h3 style=\"text-transform: capitalize;\">%s (%d)</h3><ul>", cat.Name, len(cat.Items)))
		for _, item := range cat.Items {
			sections.WriteString(fmt.Sprintf("<li>%s</li>", item.Title))
		}
		sections.WriteString("</ul>")
	}

	topPriority := ""
	if d.TopPriority != nil {
		topPriority = fmt.Sprintf("<p><strong>Top priority:</strong> %s</p>", d.TopPriority.Title)
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s</h2>
			<p>You have %d pending updates.</p>
			%s
			%s
		</div>
	`, d.Greeting, d.TotalPending, topPriority, sections.String())

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send digest to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Digest sent to %s\n", toEmail)
	return nil
}
