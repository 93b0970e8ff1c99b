package models

// ConfirmationMail is a request to send an email-confirmation link.
type ConfirmationMail struct {
	To       string
	UserName string
	Link     string
}
