package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Message is an out-of-band delivery (email today) carrying an action
// token to the account owner.
type Message struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
}

// MessageDispatcher delivers messages out-of-band. Transport is a
// collaborator concern; from this package's perspective dispatch is
// fire-and-forget with the result surfaced to the caller.
type MessageDispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// NewDevDispatcher returns a dispatcher that prints deliveries to the
// log instead of sending them. Useful for development and tests.
func NewDevDispatcher(logger Logger) MessageDispatcher {
	if logger == nil {
		logger = defLogger{}
	}
	return &devDispatcher{logger: logger}
}

type devDispatcher struct {
	logger Logger
}

func (d *devDispatcher) Send(_ context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	d.logger.Info("====== SENDING NOTIFICATION =======")
	d.logger.Info(fmt.Sprintf("id: %s", msg.ID))
	d.logger.Info(fmt.Sprintf("to: %s", msg.Recipient))
	d.logger.Info(fmt.Sprintf("subject: %s", msg.Subject))
	d.logger.Info(msg.Body)
	return nil
}
