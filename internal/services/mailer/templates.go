package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Render produces the HTML body for a message template
func Render(ctx context.Context, name string, data map[string]string) (string, error) {
	var component templ.Component
	switch name {
	case TemplateVerification:
		component = verificationEmail(data)
	default:
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func verificationEmail(data map[string]string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Verification Code</title></head><body>`+
			`<h2 class="greeting">Hello `+templ.EscapeString(data["username"])+`,</h2>`+
			`<p>Thank you for registering with SageSpace. Please use the following verification code to complete your registration:</p>`+
			`<p class="code" id="verification-code">`+templ.EscapeString(data["code"])+`</p>`+
			`<p class="validity">This code is valid for `+templ.EscapeString(data["validity"])+`.</p>`+
			`<p>If you did not request this code, please ignore this email.</p>`+
			`</body></html>`)
		return err
	})
}
