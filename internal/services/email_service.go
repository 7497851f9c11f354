package services

import (
	"fmt"

	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

type EmailService struct {
	Client *resend.Client
	From   string
}

func NewEmailService(apiKey, fromEmail string) *EmailService {
	log.Info("Email service initialized (Resend)")
	log.Infof("   - From: %s", fromEmail)
	log.Infof("   - API Key: %s", maskAPIKey(apiKey))

	if apiKey == "" {
		log.Warn("RESEND_API_KEY is empty, emails will fail")
	}

	return &EmailService{
		Client: resend.NewClient(apiKey),
		From:   fromEmail,
	}
}

func maskAPIKey(key string) string {
	if len(key) == 0 {
		return "EMPTY"
	}
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// SendNotificationEmail wraps a notification message in the standard layout.
func (es *EmailService) SendNotificationEmail(to, subject, message string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .message-box { background-color: #f4f4f4; border-left: 4px solid #1a7f37; padding: 20px; margin: 20px 0; border-radius: 5px; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h2>%s</h2>
        <div class="message-box">%s</div>
        <div class="footer">
            <p>This is an automated message from GhanaLand, please do not reply.</p>
        </div>
    </div>
</body>
</html>
	`, subject, message)

	params := &resend.SendEmailRequest{
		From:    es.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	sent, err := es.Client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.Infof("Email sent to %s (ID: %s)", to, sent.Id)
	return nil
}
