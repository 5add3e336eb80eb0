// Package templates holds the HTML components of the billing screens. The
// components are plain templ.ComponentFunc values so they render through the
// same templ.Component interface handlers use everywhere.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps a page body in the HTML document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title><link rel="stylesheet" href="/static/css/app.css"><script src="/static/js/htmx.min.js" defer></script></head><body><main id="main-content" class="container">`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// writeEscaped writes the format string with every argument HTML-escaped.
func writeEscaped(w io.Writer, format string, args ...string) error {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = templ.EscapeString(a)
	}
	_, err := fmt.Fprintf(w, format, escaped...)
	return err
}
