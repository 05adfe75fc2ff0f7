package email

import (
	"fmt"
	"html"
	"strings"
)

// BuildWelcomeBody builds the HTML body for the sign-up welcome email
func BuildWelcomeBody(name, storeURL string) string {
	greeting := "Hello"
	if n := strings.TrimSpace(name); n != "" {
		greeting = "Hello " + html.EscapeString(n)
	}

	link := ""
	if storeURL != "" {
		link = fmt.Sprintf(`<p><a href="%s" style="color: #2563eb;">Start shopping</a></p>`, html.EscapeString(storeURL))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 20px;">%s,</h1>
	<p>Your account is ready. Your cart is kept on the server, so it follows you to any device you sign in from.</p>
	%s
	<p style="color: #999; font-size: 12px;">You received this email because an account was created with this address.</p>
</body>
</html>`, greeting, link)
}
