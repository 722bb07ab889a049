package email

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const sendTimeout = 5 * time.Second

// SendPlayerEmail sends a message to a single player asynchronously. A failed
// send is logged and never fails the booking request that triggered it.
func SendPlayerEmail(sender Sender, recipient string, message Message, logger *zerolog.Logger) {
	if sender == nil {
		return
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || message.Subject == "" || message.Body == "" {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := sender.Send(sendCtx, recipient, message.Subject, message.Body); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send player email")
		}
	}()
}

// NotifyClubStaff fans a message out to every staff address concurrently.
// Every send is attempted regardless of other failures; each failure is
// logged individually and the failure count returned.
func NotifyClubStaff(ctx context.Context, sender Sender, recipients []string, message Message, from string, logger *zerolog.Logger) int {
	if sender == nil || len(recipients) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, recipient := range recipients {
		recipient := strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()
			if err := sender.SendFrom(sendCtx, recipient, message.Subject, message.Body, from); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				if logger != nil {
					logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send staff alert")
				}
			}
		}()
	}
	wg.Wait()

	return failed
}
