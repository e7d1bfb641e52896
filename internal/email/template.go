package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// otpSubjects はOTP種別ごとの件名。
var otpSubjects = map[string]string{
	"signup":             "Verify your Nimart account",
	"login":              "Your Nimart sign-in code",
	"password_reset":     "Reset your Nimart password",
	"email_verification": "Confirm your email address",
}

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f6f7f9; padding: 24px;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h1 style="color: #047857; margin-top: 0;">Nimart</h1>
    <p>{{.Intro}}</p>
    <p style="font-size: 32px; letter-spacing: 6px; font-weight: bold; text-align: center;">{{.Code}}</p>
    <p>This code expires in {{.Minutes}} minutes.</p>
    <p style="color: #6b7280; font-size: 12px;">If you did not request this code, you can safely ignore this email.</p>
  </div>
</body>
</html>
`))

// Rendered はテンプレートから組み立てたメール本文。
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// RenderOTP はOTPメールの件名・HTML・テキストを生成する。
// テキスト版はHTMLから導出する。
func RenderOTP(code, otpType string, validity time.Duration) (Rendered, error) {
	subject, ok := otpSubjects[otpType]
	if !ok {
		subject = "Your Nimart verification code"
	}

	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Intro   string
		Code    string
		Minutes int
	}{
		Intro:   introFor(otpType),
		Code:    code,
		Minutes: int(validity.Minutes()),
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("render otp email: %w", err)
	}

	text, err := HTMLToText(buf.String())
	if err != nil {
		return Rendered{}, err
	}

	return Rendered{Subject: subject, HTML: buf.String(), Text: text}, nil
}

func introFor(otpType string) string {
	switch otpType {
	case "signup":
		return "Welcome to Nimart! Use the code below to finish creating your account."
	case "login":
		return "Use the code below to sign in to Nimart."
	case "password_reset":
		return "Use the code below to reset your password."
	default:
		return "Use the code below to verify your email address."
	}
}
