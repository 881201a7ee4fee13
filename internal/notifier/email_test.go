package notifier

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/gunvortv/internal/config"
	gomail "gopkg.in/mail.v2"
)

func TestNewEmailNotifierFallsBackToLog(t *testing.T) {
	n := NewEmailNotifier(&config.Config{})
	if _, ok := n.(LogNotifier); !ok {
		t.Fatalf("got %T, want LogNotifier", n)
	}
	if err := n.SendPasswordReset("a@example.com", "", "http://x/reset?token=t"); err != nil {
		t.Fatal(err)
	}
}

func TestSendPasswordReset(t *testing.T) {
	var sent *gomail.Message
	n := &EmailNotifier{
		from:     "noreply@gunvor.tv",
		siteName: "Gunvor.TV",
		ttl:      time.Hour.String(),
		send: func(m *gomail.Message) error {
			sent = m
			return nil
		},
	}

	link := "https://gunvor.tv/reset-password?token=abc"
	if err := n.SendPasswordReset("ada@example.com", "Ada", link); err != nil {
		t.Fatal(err)
	}
	if sent == nil {
		t.Fatal("nothing sent")
	}
	if got := sent.GetHeader("To"); len(got) != 1 || got[0] != "ada@example.com" {
		t.Errorf("To = %v", got)
	}

	var buf bytes.Buffer
	if _, err := sent.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	body := buf.String()
	for _, want := range []string{"Gunvor.TV: reset your password", "Hi Ada", "1h0m0s"} {
		if !strings.Contains(body, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendPasswordResetError(t *testing.T) {
	n := &EmailNotifier{send: func(m *gomail.Message) error { return errors.New("smtp down") }}
	if err := n.SendPasswordReset("a@example.com", "", "http://x"); err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("err = %v", err)
	}
}
