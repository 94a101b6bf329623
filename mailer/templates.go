package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"cozzyhub/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatPrice renders an amount as US dollars with grouping, e.g. $1,299.00.
func FormatPrice(amount float64) string {
	return printer.Sprintf("$%.2f", amount)
}

var authorizationTmpl = template.Must(template.New("authorization").Parse(`<!DOCTYPE html>
<html><body style="font-family:sans-serif">
<h2>Welcome to CozzyHub{{if .Name}}, {{.Name}}{{end}}!</h2>
<p>Please confirm your account to start shopping.</p>
<p><a href="{{.URL}}" style="background:#111;color:#fff;padding:10px 18px;text-decoration:none;border-radius:4px">Authorize my account</a></p>
<p>If the button does not work, paste this link into your browser:<br>{{.URL}}</p>
</body></html>`))

// AuthorizationMessage builds the registration email carrying the authorization link.
func AuthorizationMessage(to, name, url string) (Message, error) {
	var html bytes.Buffer
	if err := authorizationTmpl.Execute(&html, struct{ Name, URL string }{name, url}); err != nil {
		return Message{}, fmt.Errorf("render authorization email: %w", err)
	}
	return Message{
		To:      to,
		Subject: "Authorize your CozzyHub account",
		HTML:    html.String(),
		Text:    fmt.Sprintf("Welcome to CozzyHub!\n\nAuthorize your account by visiting:\n%s\n", url),
	}, nil
}

var orderTmpl = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html><body style="font-family:sans-serif">
<h2>Thanks for your order{{if .Name}}, {{.Name}}{{end}}!</h2>
<p>Order <strong>{{.OrderID}}</strong></p>
<table cellpadding="6">
{{range .Lines}}<tr><td>{{.Title}} × {{.Quantity}}</td><td align="right">{{.Total}}</td></tr>
{{end}}<tr><td><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
</table>
</body></html>`))

type orderLine struct {
	Title    string
	Quantity int
	Total    string
}

// OrderConfirmationMessage builds the checkout receipt.
func OrderConfirmationMessage(to, name string, order *models.Order) (Message, error) {
	lines := make([]orderLine, 0, len(order.Items))
	var text strings.Builder
	fmt.Fprintf(&text, "Thanks for your order!\n\nOrder %s\n\n", order.ID)
	for _, it := range order.Items {
		total := FormatPrice(it.LineTotal)
		lines = append(lines, orderLine{Title: it.Title, Quantity: it.Quantity, Total: total})
		fmt.Fprintf(&text, "%s x %d  %s\n", it.Title, it.Quantity, total)
	}
	fmt.Fprintf(&text, "\nTotal: %s\n", FormatPrice(order.Total))

	var html bytes.Buffer
	err := orderTmpl.Execute(&html, struct {
		Name, OrderID, Total string
		Lines                []orderLine
	}{name, order.ID, FormatPrice(order.Total), lines})
	if err != nil {
		return Message{}, fmt.Errorf("render order email: %w", err)
	}

	return Message{
		To:      to,
		Subject: "Your CozzyHub order " + shortID(order.ID),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}
