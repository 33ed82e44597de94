package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter writing to out and errOut
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		if apiErr, ok := err.(*APIError); ok {
			errData = map[string]any{"error": apiErr}
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.out, string(data))
	} else {
		_, _ = fmt.Fprintln(o.out, msg)
	}
}

// PrintWarning reports a non-fatal problem on the error stream
func (o *Output) PrintWarning(w *Warning) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(o.errOut, "Warning: %s (%s)\n", w.Message, w.Code)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Account:
		o.printAccount(v)
	case AuthResult:
		o.printAuthResult(v)
	case CodeSent:
		o.printCodeSent(v)
	case Availability:
		o.printAvailability(v)
	case MessagePage:
		o.printMessagePage(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Account response type (matches API)
type Account struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	IsVerified          bool   `json:"is_verified"`
	IsAcceptingMessages bool   `json:"is_accepting_messages"`
	DisplayName         string `json:"display_name,omitempty"`
	AvatarURL           string `json:"avatar_url,omitempty"`
}

// AuthResult combines account and token
type AuthResult struct {
	Account      Account   `json:"account"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Warning is attached to a request that succeeded with a side effect missing
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CodeSent is returned by register and resend
type CodeSent struct {
	AccountID     string    `json:"account_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	CodeExpiresAt time.Time `json:"code_expires_at"`
	Reactivated   bool      `json:"reactivated"`
	Warning       *Warning  `json:"warning,omitempty"`
}

// Availability is returned by the username check
type Availability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// AcceptingResult is returned by the accepting toggle
type AcceptingResult struct {
	Accepting bool `json:"accepting"`
}

// Message is one inbox entry
type Message struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessagePage is one page of the inbox
type MessagePage struct {
	Messages   []Message `json:"messages"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (o *Output) printAccount(a Account) {
	_, _ = fmt.Fprintf(o.out, "Account: %s (%s)\n", a.Username, a.ID)
	_, _ = fmt.Fprintf(o.out, "Email: %s\n", a.Email)
	_, _ = fmt.Fprintf(o.out, "Verified: %s\n", yesNo(a.IsVerified))
	_, _ = fmt.Fprintf(o.out, "Accepting messages: %s\n", yesNo(a.IsAcceptingMessages))
	if a.DisplayName != "" {
		_, _ = fmt.Fprintf(o.out, "Display name: %s\n", a.DisplayName)
	}
	if a.AvatarURL != "" {
		_, _ = fmt.Fprintf(o.out, "Avatar: %s\n", a.AvatarURL)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printAccount(a.Account)
	_, _ = fmt.Fprintf(o.out, "Token: %s\n", a.SessionToken)
	_, _ = fmt.Fprintf(o.out, "Expires: %s\n", a.ExpiresAt.Local().Format(time.RFC1123))
}

func (o *Output) printCodeSent(c CodeSent) {
	_, _ = fmt.Fprintf(o.out, "Verification code sent to %s\n", c.Email)
	_, _ = fmt.Fprintf(o.out, "Code expires: %s\n", c.CodeExpiresAt.Local().Format(time.RFC1123))
	if c.Reactivated {
		_, _ = fmt.Fprintln(o.out, "Existing unverified account reused")
	}
	o.PrintWarning(c.Warning)
}

func (o *Output) printAvailability(a Availability) {
	if a.Available {
		_, _ = fmt.Fprintf(o.out, "%s is available\n", a.Username)
	} else {
		_, _ = fmt.Fprintf(o.out, "%s is taken\n", a.Username)
	}
}

func (o *Output) printMessagePage(p MessagePage) {
	if p.Total == 0 {
		_, _ = fmt.Fprintln(o.out, "No messages")
		return
	}
	_, _ = fmt.Fprintf(o.out, "Messages (page %d of %d, %d total):\n", p.Page, p.TotalPages, p.Total)
	for _, m := range p.Messages {
		_, _ = fmt.Fprintf(o.out, "  [%s] %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Content)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.out, "Status: %s\n", h.Status)
	if h.Storage != "" {
		_, _ = fmt.Fprintf(o.out, "Storage: %s\n", h.Storage)
	}
}
