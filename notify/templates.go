package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"github.com/skip2/go-qrcode"

	utils "github.com/phillip/lets-hang-go/utils"
)

const qrCID = "ticket-qr"

var funcs = template.FuncMap{
	"amount": FormatAmount,
	"year":   func() int { return time.Now().Year() },
}

var layout = template.Must(template.New("layout").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:0;background-color:#f5f5f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
<table width="100%" cellpadding="0" cellspacing="0" style="background-color:#f5f5f5;padding:48px 20px;">
<tr><td align="center">
<p style="margin:0 0 32px;font-size:20px;font-weight:700;font-style:italic;color:#8b5cf6;">let's hang</p>
<table width="100%" cellpadding="0" cellspacing="0" style="max-width:480px;background:#ffffff;border-radius:16px;overflow:hidden;">
{{template "body" .}}
</table>
<p style="margin:32px 0 0;color:#999;font-size:12px;">&copy; {{year}} Let's Hang</p>
</td></tr>
</table>
</body>
</html>`))

var bodies = map[Kind]string{
	KindOTP: `{{define "body"}}<tr><td style="padding:48px 40px;text-align:center;">
<h1 style="margin:0 0 12px;color:#1a1a1a;font-size:22px;">Verify your email</h1>
<p style="margin:0 0 28px;color:#666;font-size:15px;">Hi {{.Msg.Name}}, enter this code to continue:</p>
<div style="background:#f8f5ff;border-radius:12px;padding:24px;margin-bottom:28px;">
<span style="font-size:32px;font-weight:700;color:#8b5cf6;letter-spacing:8px;font-family:monospace;">{{.Msg.OTP}}</span>
</div>
<p style="margin:0;color:#999;font-size:13px;">This code expires in 10 minutes</p>
</td></tr>{{end}}`,

	KindWelcome: `{{define "body"}}<tr><td style="padding:48px 40px;text-align:center;">
<h1 style="margin:0 0 12px;color:#1a1a1a;font-size:24px;">Welcome aboard!</h1>
<p style="margin:0 0 32px;color:#666;font-size:15px;">Hey {{.Msg.Name}}, you're all set to discover and host amazing events.</p>
<a href="{{.FrontendURL}}/search" style="display:inline-block;background:#1a1a1a;color:#fff;text-decoration:none;padding:14px 32px;border-radius:8px;font-size:14px;">Explore Events</a>
</td></tr>{{end}}`,

	KindCancellation: `{{define "body"}}{{with .Msg.Cancellation}}<tr><td style="padding:40px;">
<h1 style="margin:0 0 24px;color:#1a1a1a;font-size:20px;text-align:center;">Booking Cancelled</h1>
<h2 style="margin:0 0 16px;color:#1a1a1a;font-size:16px;">{{.EventName}}</h2>
<table width="100%" cellpadding="0" cellspacing="0" style="font-size:14px;">
<tr><td style="color:#888;">Date</td><td style="text-align:right;">{{.EventDate}}</td></tr>
<tr><td style="color:#888;">Location</td><td style="text-align:right;">{{.EventLocation}}</td></tr>
{{if gt .TicketCount 1}}<tr><td style="color:#888;">Tickets</td><td style="text-align:right;">{{.TicketCount}}</td></tr>{{end}}
<tr><td style="color:#888;">Amount paid</td><td style="text-align:right;">{{amount .OriginalAmount}}</td></tr>
{{if gt .CancellationFee 0}}<tr><td style="color:#888;">Cancellation fee ({{.FeePercent}}%)</td><td style="text-align:right;">-{{amount .CancellationFee}}</td></tr>{{end}}
<tr><td style="color:#1a1a1a;font-weight:600;">Refund</td><td style="text-align:right;color:#16a34a;font-weight:600;">{{amount .RefundAmount}}</td></tr>
</table>
<p style="margin:24px 0 0;color:#999;font-size:13px;">Refunds reach your original payment method in 5-7 business days.</p>
</td></tr>{{end}}{{end}}`,

	KindTicket: `{{define "body"}}{{with .Msg.Ticket}}<tr><td style="background:#8b5cf6;padding:32px;">
<p style="margin:0 0 8px;color:rgba(255,255,255,0.8);font-size:12px;text-transform:uppercase;">Event Ticket</p>
<h1 style="margin:0;color:#fff;font-size:24px;">{{.EventName}}</h1>
{{if gt .TicketCount 1}}<span style="display:inline-block;margin-top:12px;color:#fff;font-size:12px;">{{.TicketCount}} Tickets</span>{{end}}
</td></tr>
<tr><td style="padding:28px 32px;font-size:15px;">
<p><b>When</b><br>{{.EventDate}}</p>
<p><b>Where</b><br>{{.EventLocation}}</p>
<p><b>Attendee</b><br>{{$.Msg.Name}}{{if gt .TicketCount 1}} + {{sub1 .TicketCount}} guest(s){{end}}</p>
{{if .TicketTierName}}<p><b>Ticket Type</b><br>{{.TicketTierName}}</p>{{end}}
{{range .AddOns}}<p>&bull; {{.Name}}{{if gt .Quantity 1}} &times; {{.Quantity}}{{end}}</p>{{end}}
{{if gt .AmountPaid 0}}<p><b>Amount Paid</b><br>{{amount .AmountPaid}}</p>{{end}}
{{if .EventDescription}}<p style="color:#555;">{{.EventDescription}}</p>{{end}}
</td></tr>
<tr><td align="center" style="padding:0 32px 28px;">
<img src="cid:{{$.QRCID}}" alt="QR" width="160" height="160" style="display:block;">
<p style="margin:16px 0 0;color:#888;font-size:11px;font-family:monospace;">{{.TicketID}}</p>
</td></tr>
{{if .HostEmail}}<tr><td style="padding:0 32px 28px;font-size:14px;">Host: {{.HostName}} &bull; <a href="mailto:{{.HostEmail}}">{{.HostEmail}}</a></td></tr>{{end}}
<tr><td align="center" style="padding:0 32px 32px;">
<a href="{{$.EventURL}}" style="display:inline-block;background:#1a1a1a;color:#fff;text-decoration:none;padding:14px 28px;border-radius:8px;font-size:14px;">View Event Details</a>
</td></tr>{{end}}{{end}}`,

	KindPayout: `{{define "body"}}{{with .Msg.Payout}}<tr><td style="padding:40px;text-align:center;">
<h1 style="margin:0 0 12px;color:#1a1a1a;font-size:22px;">Payout sent</h1>
<p style="margin:0 0 24px;color:#666;font-size:15px;">Your earnings for <b>{{.EventName}}</b> are on their way.</p>
<p style="font-size:28px;font-weight:700;color:#16a34a;margin:0 0 24px;">{{amount .HostEarnings}}</p>
<p style="margin:0;color:#999;font-size:12px;font-family:monospace;">{{.PayoutID}} &middot; {{.TransactionID}}</p>
</td></tr>{{end}}{{end}}`,
}

var templates = func() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(bodies))
	for kind, body := range bodies {
		t := template.Must(layout.Clone())
		t.Funcs(template.FuncMap{"sub1": func(n int) int { return n - 1 }})
		out[kind] = template.Must(t.Parse(body))
	}
	return out
}()

type view struct {
	Msg         Message
	FrontendURL string
	EventURL    string
	QRCID       string
}

// Renderer turns a Message into a ready-to-send Email.
type Renderer struct {
	FrontendURL string
}

func (r Renderer) Render(msg Message) (utils.Email, error) {
	t, ok := templates[msg.Kind]
	if !ok {
		return utils.Email{}, fmt.Errorf("unknown email kind %q", msg.Kind)
	}

	v := view{Msg: msg, FrontendURL: r.FrontendURL, QRCID: qrCID}
	email := utils.Email{To: msg.To, ToName: msg.Name}

	switch msg.Kind {
	case KindOTP:
		email.Subject = fmt.Sprintf("%s is your verification code", msg.OTP)
		email.Text = fmt.Sprintf("Hi %s, your verification code is %s. Valid for 10 minutes.", msg.Name, msg.OTP)
	case KindWelcome:
		email.Subject = fmt.Sprintf("Welcome to Let's Hang, %s!", msg.Name)
		email.Text = fmt.Sprintf("Welcome to Let's Hang, %s! Start exploring at %s/search", msg.Name, r.FrontendURL)
	case KindCancellation:
		if msg.Cancellation == nil {
			return email, fmt.Errorf("cancellation email without data")
		}
		email.Subject = "Booking cancelled - " + msg.Cancellation.EventName
	case KindPayout:
		if msg.Payout == nil {
			return email, fmt.Errorf("payout email without data")
		}
		email.Subject = "Payout sent for " + msg.Payout.EventName
	case KindTicket:
		tk := msg.Ticket
		if tk == nil {
			return email, fmt.Errorf("ticket email without data")
		}
		v.EventURL = fmt.Sprintf("%s/event/%s", r.FrontendURL, tk.EventID)
		png, err := qrcode.Encode(v.EventURL, qrcode.Medium, 256)
		if err != nil {
			return email, fmt.Errorf("generate ticket qr: %w", err)
		}
		email.InlineImages = []utils.InlineImage{{
			CID:      qrCID,
			MimeType: "image/png",
			Content:  base64.StdEncoding.EncodeToString(png),
		}}
		if tk.TicketCount > 1 {
			email.Subject = fmt.Sprintf("Your %d tickets for %s", tk.TicketCount, tk.EventName)
		} else {
			email.Subject = "Your ticket for " + tk.EventName
		}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return email, fmt.Errorf("render %s email: %w", msg.Kind, err)
	}
	email.HTML = buf.String()
	return email, nil
}
