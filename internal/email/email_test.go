package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadbridge/platform/config"
)

func TestRenderLeadNotificationEscapesUserText(t *testing.T) {
	html, err := RenderLeadNotification(LeadNotification{
		RecipientName: "Jana",
		Heading:       "Nová poznámka",
		Intro:         "Poradce přidal poznámku.",
		ClientName:    "<script>alert(1)</script>",
		Details:       []Detail{{Label: "Poznámka", Value: "Klient volá & píše"}},
		LeadURL:       "https://crm.example.cz/leads/1",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("client name must be escaped")
	}
	for _, want := range []string{"<title>Nová poznámka</title>", "Dobrý den, Jana", "Klient volá &amp; píše", "https://crm.example.cz/leads/1", "Otevřít lead"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in rendered email", want)
		}
	}
}

func TestRenderLeadNotificationWithoutLink(t *testing.T) {
	html, err := RenderLeadNotification(LeadNotification{Heading: "Lead", ClientName: "Petr"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "Otevřít lead") {
		t.Fatalf("no call to action without a link")
	}
}

func TestFormatCZK(t *testing.T) {
	cases := map[int64]string{
		0:       "0 Kč",
		950:     "950 Kč",
		7000:    "7 000 Kč",
		3500000: "3 500 000 Kč",
		-12500:  "-12 500 Kč",
	}
	for in, want := range cases {
		if got := FormatCZK(in); got != want {
			t.Fatalf("FormatCZK(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestBrevoSenderPostsPayload(t *testing.T) {
	var got brevoEmailRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewBrevoSender("key-1", "crm@example.cz", "LeadBridge", time.Second)
	s.endpoint = srv.URL
	if err := s.Send(context.Background(), "jana@example.cz", "Předmět", "<p>ahoj</p>"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if apiKey != "key-1" || got.Subject != "Předmět" || len(got.To) != 1 || got.To[0].Email != "jana@example.cz" {
		t.Fatalf("unexpected request %+v (key %q)", got, apiKey)
	}
	if got.Sender.Email != "crm@example.cz" || got.Sender.Name != "LeadBridge" {
		t.Fatalf("unexpected sender %+v", got.Sender)
	}
}

func TestBrevoSenderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewBrevoSender("nope", "crm@example.cz", "", time.Second)
	s.endpoint = srv.URL
	err := s.Send(context.Background(), "jana@example.cz", "x", "y")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

type emailConfig struct {
	enabled  bool
	provider string
	brevoKey string
	smtpHost string
	from     string
}

func (c emailConfig) GetEmailEnabled() bool       { return c.enabled }
func (c emailConfig) GetEmailProvider() string    { return c.provider }
func (c emailConfig) GetBrevoAPIKey() string      { return c.brevoKey }
func (c emailConfig) GetSMTPHost() string         { return c.smtpHost }
func (c emailConfig) GetSMTPPort() int            { return 587 }
func (c emailConfig) GetSMTPUsername() string     { return "" }
func (c emailConfig) GetSMTPPassword() string     { return "" }
func (c emailConfig) GetEmailFromName() string    { return "LeadBridge" }
func (c emailConfig) GetEmailFromAddress() string { return c.from }

func TestNewSenderSelectsProvider(t *testing.T) {
	cases := []struct {
		name    string
		cfg     emailConfig
		want    string
		wantErr bool
	}{
		{"disabled", emailConfig{}, "noop", false},
		{"smtp", emailConfig{enabled: true, provider: config.EmailProviderSMTP, smtpHost: "mail.local", from: "a@b.cz"}, "smtp", false},
		{"brevo", emailConfig{enabled: true, provider: config.EmailProviderBrevo, brevoKey: "k", from: "a@b.cz"}, "brevo", false},
		{"smtp without host", emailConfig{enabled: true, provider: config.EmailProviderSMTP, from: "a@b.cz"}, "", true},
		{"missing from", emailConfig{enabled: true, provider: config.EmailProviderBrevo, brevoKey: "k"}, "", true},
		{"unknown", emailConfig{enabled: true, provider: "pigeon", from: "a@b.cz"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSender(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSender: %v", err)
			}
			var got string
			switch s.(type) {
			case NoopSender:
				got = "noop"
			case *SMTPSender:
				got = "smtp"
			case *BrevoSender:
				got = "brevo"
			}
			if got != tc.want {
				t.Fatalf("expected %s sender, got %T", tc.want, s)
			}
		})
	}
}
