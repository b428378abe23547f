package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/example/meeting-booking/internal/scheduler"
)

// ErrNoCredential is reported for a recipient nobody can send to.
var ErrNoCredential = errors.New("mailer: no SMTP credential available for recipient")

// Delivery is one recipient and the account used to reach them. A zero
// Credential means none could be resolved.
type Delivery struct {
	Email      string
	Credential scheduler.Credential
}

// RecipientResult reports the outcome for one recipient.
type RecipientResult struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchResult aggregates a SendBatch run. Results follow the input order.
type BatchResult struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Results []RecipientResult `json:"results"`
}

// SendBatch delivers msg to every recipient concurrently. A failure for one
// recipient never prevents delivery to the others.
func SendBatch(ctx context.Context, sender Sender, msg Message, deliveries []Delivery) BatchResult {
	results := make([]RecipientResult, len(deliveries))

	var wg sync.WaitGroup
	for i, d := range deliveries {
		wg.Add(1)
		go func(i int, d Delivery) {
			defer wg.Done()
			results[i] = deliver(ctx, sender, msg, d)
		}(i, d)
	}
	wg.Wait()

	batch := BatchResult{Total: len(deliveries), Results: results}
	for _, r := range results {
		if r.Success {
			batch.Success++
		} else {
			batch.Failed++
		}
	}
	return batch
}

func deliver(ctx context.Context, sender Sender, msg Message, d Delivery) (result RecipientResult) {
	result.Email = d.Email
	defer func() {
		if p := recover(); p != nil {
			result.Success = false
			result.Error = fmt.Sprintf("mailer: sender panicked: %v", p)
		}
	}()

	if !strings.Contains(d.Email, "@") {
		result.Error = fmt.Sprintf("invalid recipient address %q", d.Email)
		return result
	}
	if !d.Credential.Complete() {
		result.Error = ErrNoCredential.Error()
		return result
	}
	if err := sender.Send(ctx, d.Credential, d.Email, msg); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}
