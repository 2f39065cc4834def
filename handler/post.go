package handler

import (
	"fmt"

	"github.com/freekieb7/docserve/http"
)

// Post reads a contact form (name, email, message) and thanks the sender.
func (d *DocumentRoot) Post(ctx *http.RequestCtx) {
	form := http.ParseQuery(ctx.Body)

	name := form.Get("name")
	email := form.Get("email")
	message := form.Get("message")

	reply(ctx, http.StatusOK, fmt.Sprintf(
		"Hello, %s!\nThanks for reaching out.\nWe received your message:\n\"%s\"\nWe'll contact you at: %s",
		name, message, email,
	))
}
