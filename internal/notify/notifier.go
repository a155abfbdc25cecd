package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"bookstore-backend/internal/events"
	"bookstore-backend/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("email client not configured")

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"money": func(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) },
	"lineTotal": func(price float64, qty int) string {
		return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).StringFixed(2)
	},
	"join": strings.Join,
}

const (
	TplOrderConfirmation = "order_confirmation"
	TplWelcome           = "welcome"
	TplSignupInvite      = "signup_invite"
	TplContact           = "contact"
	TplAdminWelcome      = "admin_welcome"
)

type Links struct {
	FrontendURL       string
	AdminDashboardURL string
	SupportInbox      string
}

// Notifier renders the email templates and turns notification events into
// deliveries.
type Notifier struct {
	mailer    Mailer
	links     Links
	templates map[string]*template.Template
	log       *zap.Logger
}

func NewNotifier(mailer Mailer, links Links, log *zap.Logger) (*Notifier, error) {
	templates := map[string]*template.Template{}
	for _, name := range []string{TplOrderConfirmation, TplWelcome, TplSignupInvite, TplContact, TplAdminWelcome} {
		t, err := template.New(name + ".html").Funcs(funcs).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = t
	}
	return &Notifier{mailer: mailer, links: links, templates: templates, log: log}, nil
}

func (n *Notifier) Render(key string, data interface{}) (string, error) {
	tpl, ok := n.templates[key]
	if !ok {
		return "", fmt.Errorf("template %q not found", key)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendTemplateEmail renders key with data and delivers it. An unconfigured
// mailer is logged and skipped.
func (n *Notifier) SendTemplateEmail(ctx context.Context, to, subject, key string, data interface{}) error {
	html, err := n.Render(key, data)
	if err != nil {
		return err
	}
	if !n.mailer.IsConfigured() {
		n.log.Warn("email not configured, skipping", zap.String("to", to), zap.String("template", key))
		return nil
	}
	if err := n.mailer.Send(ctx, to, subject, html); err != nil {
		return fmt.Errorf("send %s to %s: %w", key, to, err)
	}
	n.log.Info("email sent", zap.String("to", to), zap.String("template", key))
	return nil
}

// Handle implements events.Handler.
func (n *Notifier) Handle(ctx context.Context, env events.Envelope) error {
	err := n.deliver(ctx, env)
	metrics.EmailsSent.WithLabelValues(env.Type, metrics.Result(err)).Inc()
	return err
}

func (n *Notifier) deliver(ctx context.Context, env events.Envelope) error {
	switch env.Type {
	case events.TypeOrderCreated:
		var e events.OrderCreated
		if err := env.Decode(&e); err != nil {
			return err
		}
		data := struct {
			events.OrderCreated
			Date     string
			OrderURL string
		}{e, e.CreatedAt.Format("January 2, 2006"), n.links.FrontendURL + "/orders/" + e.OrderID}
		return n.SendTemplateEmail(ctx, e.Email, "Order Confirmation #"+e.OrderID, TplOrderConfirmation, data)

	case events.TypeUserRegistered:
		var e events.UserRegistered
		if err := env.Decode(&e); err != nil {
			return err
		}
		data := map[string]string{"Fullname": e.Fullname, "Link": n.links.FrontendURL}
		return n.SendTemplateEmail(ctx, e.Email, "Welcome to BookStore", TplWelcome, data)

	case events.TypeWelcomeRequested:
		var e events.WelcomeRequested
		if err := env.Decode(&e); err != nil {
			return err
		}
		data := map[string]string{"Link": n.links.FrontendURL + "/signup"}
		return n.SendTemplateEmail(ctx, e.Email, "Welcome to BookStore - Complete Your Registration", TplSignupInvite, data)

	case events.TypeContactSubmitted:
		var e events.ContactSubmitted
		if err := env.Decode(&e); err != nil {
			return err
		}
		if n.links.SupportInbox == "" {
			n.log.Warn("support inbox not configured, dropping contact message", zap.String("from", e.Email))
			return nil
		}
		return n.SendTemplateEmail(ctx, n.links.SupportInbox, "New Contact Form Submission: "+e.Subject, TplContact, e)

	case events.TypeAdminRegistered:
		var e events.AdminRegistered
		if err := env.Decode(&e); err != nil {
			return err
		}
		data := struct {
			events.AdminRegistered
			Link string
		}{e, n.links.AdminDashboardURL}
		return n.SendTemplateEmail(ctx, e.Email, "Welcome to BookStore Admin Panel", TplAdminWelcome, data)

	default:
		n.log.Debug("ignoring event", zap.String("type", env.Type))
		return nil
	}
}
