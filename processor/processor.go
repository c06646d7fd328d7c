package processor

import (
	"context"
	"fmt"
)

// Processor defines the interface for processing messages.
type Processor interface {
	Process(context.Context, Message) error
	Subscribe(Processor)
}

// Message encapsulates the payload to be processed with optional metadata.
type Message struct {
	Payload  interface{}            `json:"payload"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ExtractBatch extracts a *Batch payload from a processor.Message.
func ExtractBatch(msg Message) (*Batch, error) {
	batch, ok := msg.Payload.(*Batch)
	if !ok {
		return nil, fmt.Errorf("expected *Batch payload, got %T", msg.Payload)
	}
	return batch, nil
}

// ForwardToProcessors sends the batch to all downstream processors.
func ForwardToProcessors(ctx context.Context, batch *Batch, processors []Processor) error {
	for _, p := range processors {
		if err := p.Process(ctx, Message{Payload: batch}); err != nil {
			return fmt.Errorf("error in processor chain: %w", err)
		}
	}
	return nil
}
