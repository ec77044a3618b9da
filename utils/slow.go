package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"go.viam.com/rhsrobot/logging"
)

// slowLogDelays are the gaps between successive warnings. The last repeats.
var slowLogDelays = []time.Duration{2 * time.Second, 3 * time.Second, 5 * time.Second}

// SlowLogger warns with msg and keysAndValues while an operation is still waiting, first after
// two seconds and then at growing intervals. A nil clk is the wall clock. Call the returned func
// when the operation finishes.
func SlowLogger(
	ctx context.Context,
	clk clock.Clock,
	logger logging.Logger,
	msg string,
	keysAndValues ...interface{},
) func() {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	start := clk.Now()
	goutils.PanicCapturingGo(func() {
		for i := 0; ; i++ {
			timer := clk.Timer(slowLogDelays[min(i, len(slowLogDelays)-1)])
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			elapsed := clk.Since(start).Round(time.Second)
			logger.Warnw(msg, append(keysAndValues, "waited", elapsed.String())...)
		}
	})
	return cancel
}
