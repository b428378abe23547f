package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/meeting-booking/internal/scheduler"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  map[string]string
	fail  map[string]error
	panic string
}

func (s *recordingSender) Send(_ context.Context, cred scheduler.Credential, to string, _ Message) error {
	if to == s.panic {
		panic("boom")
	}
	if err := s.fail[to]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string]string)
	}
	s.sent[to] = cred.Email
	return nil
}

func TestSendBatch(t *testing.T) {
	t.Parallel()

	org := scheduler.Credential{Email: "org@example.com", Secret: "code"}
	sender := &recordingSender{
		fail:  map[string]error{"down@example.com": errors.New("535 authentication failed")},
		panic: "panic@example.com",
	}

	result := SendBatch(context.Background(), sender, Message{Subject: "s"}, []Delivery{
		{Email: "a@example.com", Credential: org},
		{Email: "down@example.com", Credential: org},
		{Email: "no-at-sign", Credential: org},
		{Email: "nocred@example.com"},
		{Email: "panic@example.com", Credential: org},
		{Email: "b@example.com", Credential: org},
	})

	if result.Total != 6 || result.Success != 2 || result.Failed != 4 {
		t.Fatalf("unexpected totals %+v", result)
	}
	want := []bool{true, false, false, false, false, true}
	for i, r := range result.Results {
		if r.Success != want[i] {
			t.Errorf("result %d (%s): success=%v, want %v (%s)", i, r.Email, r.Success, want[i], r.Error)
		}
		if !r.Success && r.Error == "" {
			t.Errorf("result %d missing error text", i)
		}
	}
	if result.Results[3].Error != ErrNoCredential.Error() {
		t.Errorf("expected no-credential error, got %q", result.Results[3].Error)
	}
	if sender.sent["a@example.com"] != "org@example.com" {
		t.Errorf("expected organizer account to send, got %q", sender.sent["a@example.com"])
	}
}

func TestSendBatchEmpty(t *testing.T) {
	t.Parallel()

	result := SendBatch(context.Background(), &recordingSender{}, Message{}, nil)
	if result.Total != 0 || result.Success != 0 || result.Failed != 0 || len(result.Results) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}
