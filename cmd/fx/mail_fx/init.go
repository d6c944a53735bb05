package mail_fx

import (
	"log"
	"os"

	"chatbill/internal/services"

	"go.uber.org/fx"
)

var Module = fx.Provide(provideMailService)

func provideMailService() services.IMailService {
	cfg := services.SMTPConfig{
		Host:     "smtp.gmail.com",
		Port:     587, // STARTTLS
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"), // use app password if 2FA is enabled
		From:     os.Getenv("SMTP_USERNAME"),
		FromName: "ChatBill",

		AppName:    "ChatBill",
		AppBaseURL: os.Getenv("APP_BASE_URL"),
	}

	mailService, err := services.NewSMTPMailService(cfg)
	if err != nil {
		log.Printf("Failed to initialize SMTP mail service: %v", err)
	}

	return mailService
}
