package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"clientbilling/observability"
)

// Toast kinds understood by the client script.
const (
	toastSuccess = "success"
	toastError   = "error"
)

const (
	toastEvent      = "showToast"
	flashToastName  = "flash_toast"
	flashToastTTL   = 10
	hxTriggerHeader = "HX-Trigger"
)

type toast struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SetToast queues a toast for the client. HTMX requests receive it as a
// showToast event in HX-Trigger, merged with any events already set on the
// response; full-page loads pick it up from a short-lived flash cookie.
func SetToast(e *core.RequestEvent, kind, message string) {
	t := toast{Message: message, Type: kind}

	existing := e.Response.Header().Get(hxTriggerHeader)
	events, err := triggerEvents(existing)
	if err != nil {
		observability.FromContext(e.Request.Context()).Warn("toast: replacing malformed HX-Trigger",
			zap.String("hx_trigger", existing), zap.Error(err))
	}
	events[toastEvent] = t
	header, err := json.Marshal(events)
	if err != nil {
		observability.FromContext(e.Request.Context()).Warn("toast: encode HX-Trigger",
			zap.String("message", message), zap.Error(err))
		return
	}
	e.Response.Header().Set(hxTriggerHeader, string(header))

	cookie, _ := json.Marshal(t)
	http.SetCookie(e.Response, &http.Cookie{
		Name:     flashToastName,
		Value:    url.QueryEscape(string(cookie)),
		Path:     "/",
		MaxAge:   flashToastTTL,
		HttpOnly: false, // read by the client script
		SameSite: http.SameSiteLaxMode,
	})
}

// triggerEvents decodes an HX-Trigger value. HTMX accepts either a JSON
// object or a comma-separated list of event names; names become events
// without a payload. A malformed object yields no events and an error.
func triggerEvents(header string) (map[string]any, error) {
	events := make(map[string]any)
	header = strings.TrimSpace(header)
	if header == "" {
		return events, nil
	}
	if strings.HasPrefix(header, "{") {
		if err := json.Unmarshal([]byte(header), &events); err != nil {
			return make(map[string]any), err
		}
		return events, nil
	}
	for _, name := range strings.Split(header, ",") {
		if name = strings.TrimSpace(name); name != "" {
			events[name] = nil
		}
	}
	return events, nil
}

// ErrorToast shows an error toast and answers with the message as plain text.
// HX-Reswap: none keeps HTMX from swapping that text into the page.
func ErrorToast(e *core.RequestEvent, statusCode int, message string) error {
	SetToast(e, toastError, message)
	e.Response.Header().Set("HX-Reswap", "none")
	return e.String(statusCode, message)
}
