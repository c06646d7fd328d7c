package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/truvi/booking-etl/processor"
)

// BuildProcessorChain chains processors sequentially and subscribes all
// consumers to the last processor.
func BuildProcessorChain(logger *zap.Logger, processors []processor.Processor, consumers []processor.Processor) {
	var last processor.Processor

	for _, p := range processors {
		if last != nil {
			last.Subscribe(p)
			logger.Debug("chained processors",
				zap.String("from", fmt.Sprintf("%T", last)),
				zap.String("to", fmt.Sprintf("%T", p)))
		}
		last = p
	}

	if last != nil {
		for _, c := range consumers {
			last.Subscribe(c)
			logger.Debug("chained consumer",
				zap.String("from", fmt.Sprintf("%T", last)),
				zap.String("to", fmt.Sprintf("%T", c)))
		}
	} else if len(consumers) > 0 {
		// No processors: chain the consumers to each other.
		for i := 1; i < len(consumers); i++ {
			consumers[0].Subscribe(consumers[i])
		}
	}
}
