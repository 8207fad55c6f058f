package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService handles email sending
type EmailService struct {
	config EmailConfig
	send   SendFunc
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config, send: smtp.SendMail}
}

// WithSender replaces the SMTP transport. Used by tests.
func (s *EmailService) WithSender(send SendFunc) *EmailService {
	s.send = send
	return s
}

// Enabled reports whether an SMTP host and sender address are configured.
func (s *EmailService) Enabled() bool {
	return s != nil && s.config.SMTPHost != "" && s.config.FromEmail != ""
}

// ReceiptLine is one item row of a mailed receipt. Amounts are pre-formatted.
type ReceiptLine struct {
	Name     string
	Quantity string
	Total    string
}

// ReceiptEmail is the content of a mailed receipt.
type ReceiptEmail struct {
	StoreName string
	SalesID   string
	Date      string
	Customer  string
	Lines     []ReceiptLine
	Total     string
	Paid      string
	Due       string
}

// SendReceiptEmail mails a sale receipt to the customer
func (s *EmailService) SendReceiptEmail(toEmail string, receipt ReceiptEmail) error {
	if !s.Enabled() {
		return fmt.Errorf("email is not configured")
	}

	htmlContent, err := s.renderReceiptEmail(receipt)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Your receipt %s - %s", receipt.SalesID, receipt.StoreName)
	message := s.buildHTMLEmail(toEmail, subject, htmlContent)

	return s.sendEmail(toEmail, message)
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	if err := s.send(addr, auth, s.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// buildHTMLEmail builds an HTML email message
func (s *EmailService) buildHTMLEmail(to, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		to,
		subject,
	)

	return []byte(headers + htmlBody)
}

func (s *EmailService) renderReceiptEmail(receipt ReceiptEmail) (string, error) {
	tmpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, receipt); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// receiptTemplate is the HTML template for receipt emails
const receiptTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Receipt {{.SalesID}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
    <table role="presentation" style="width: 100%; border-collapse: collapse;">
        <tr>
            <td align="center" style="padding: 32px 0;">
                <table role="presentation" style="width: 100%; max-width: 480px; border-collapse: collapse; background-color: #ffffff; border-radius: 8px;">
                    <tr>
                        <td style="padding: 24px; text-align: center; border-bottom: 1px solid #e4e4e7;">
                            <h1 style="margin: 0; font-size: 22px; color: #18181b;">{{.StoreName}}</h1>
                            <p style="margin: 8px 0 0; font-size: 13px; color: #71717a;">Receipt {{.SalesID}} &middot; {{.Date}}</p>
                            {{if .Customer}}<p style="margin: 4px 0 0; font-size: 13px; color: #71717a;">{{.Customer}}</p>{{end}}
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 16px 24px;">
                            <table role="presentation" style="width: 100%; border-collapse: collapse; font-size: 14px; color: #3f3f46;">
                                {{range .Lines}}
                                <tr>
                                    <td style="padding: 4px 0;">{{.Quantity}} x {{.Name}}</td>
                                    <td style="padding: 4px 0; text-align: right;">{{.Total}}</td>
                                </tr>
                                {{end}}
                                <tr>
                                    <td style="padding: 12px 0 4px; font-weight: 600; border-top: 1px solid #e4e4e7;">Total</td>
                                    <td style="padding: 12px 0 4px; font-weight: 600; text-align: right; border-top: 1px solid #e4e4e7;">{{.Total}}</td>
                                </tr>
                                <tr>
                                    <td style="padding: 4px 0;">Paid</td>
                                    <td style="padding: 4px 0; text-align: right;">{{.Paid}}</td>
                                </tr>
                                {{if ne .Due "0.00"}}
                                <tr>
                                    <td style="padding: 4px 0;">Due</td>
                                    <td style="padding: 4px 0; text-align: right;">{{.Due}}</td>
                                </tr>
                                {{end}}
                            </table>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 16px 24px; text-align: center; font-size: 12px; color: #a1a1aa;">
                            Thank you for your business!
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>
`
