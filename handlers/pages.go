package handlers

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
)

type page struct {
	Title   string
	Heading string
	Body    string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} · CozzyHub</title></head>
<body style="font-family:sans-serif;max-width:32rem;margin:4rem auto;text-align:center">
<h1>{{.Heading}}</h1>
<p>{{.Body}}</p>
</body>
</html>`))

var tokenNotFoundPage = page{
	Title:   "Link not found",
	Heading: "This authorization link is not valid",
	Body:    "The link may have expired or already been replaced. Register again or contact support.",
}

func renderPage(c *fiber.Ctx, status int, p page) error {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}
