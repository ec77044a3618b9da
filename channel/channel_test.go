package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

type countingObserver struct {
	mu       sync.Mutex
	sent     map[string]int
	timeouts map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{sent: map[string]int{}, timeouts: map[string]int{}}
}

func (o *countingObserver) MessageSent(channel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[channel]++
}

func (o *countingObserver) ReceiveTimedOut(channel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeouts[channel]++
}

func TestOpen(t *testing.T) {
	logger := logging.NewTestLogger(t)
	reg := NewRegistry(logger)

	t.Run("creation is idempotent", func(t *testing.T) {
		w1, err := reg.Open("qDrive", WriteOnly)
		test.That(t, err, test.ShouldBeNil)
		w2, err := reg.Open("qDrive", WriteOnly)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, w1.Name(), test.ShouldEqual, w2.Name())
		test.That(t, reg.Names(), test.ShouldResemble, []string{"qDrive"})
	})

	t.Run("only one reader may bind", func(t *testing.T) {
		r1, err := reg.Open("qConvey", ReadOnly)
		test.That(t, err, test.ShouldBeNil)

		_, err = reg.Open("qConvey", ReadOnly)
		test.That(t, IsChannelUnavailable(err), test.ShouldBeTrue)

		test.That(t, r1.Close(), test.ShouldBeNil)
		r2, err := reg.Open("qConvey", ReadOnly)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r2.Close(), test.ShouldBeNil)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := reg.Open("", WriteOnly)
		test.That(t, IsChannelUnavailable(err), test.ShouldBeTrue)
	})

	t.Run("wrong end", func(t *testing.T) {
		w, err := reg.Open("qAuto", WriteOnly)
		test.That(t, err, test.ShouldBeNil)
		_, err = w.Receive(context.Background(), time.Millisecond)
		test.That(t, IsChannelUnavailable(err), test.ShouldBeTrue)

		r, err := reg.Open("qAuto", ReadOnly)
		test.That(t, err, test.ShouldBeNil)
		err = r.Send(message.New(message.AutonomousRun))
		test.That(t, IsChannelUnavailable(err), test.ShouldBeTrue)
	})

	t.Run("closed registry", func(t *testing.T) {
		closing := NewRegistry(logger)
		w, err := closing.Open("qDrive", WriteOnly)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, closing.Close(), test.ShouldBeNil)
		test.That(t, closing.Close(), test.ShouldBeNil)

		_, err = closing.Open("qDrive", WriteOnly)
		test.That(t, IsChannelUnavailable(err), test.ShouldBeTrue)
		test.That(t, IsChannelUnavailable(w.Send(message.New(message.DrivetrainStop))), test.ShouldBeTrue)
	})
}

func TestSendReceive(t *testing.T) {
	logger := logging.NewTestLogger(t)
	observer := newCountingObserver()
	reg := NewRegistry(logger, WithObserver(observer))
	ctx := context.Background()

	reader, err := reg.Open("qDrive", ReadOnly)
	test.That(t, err, test.ShouldBeNil)

	t.Run("fifo without reordering or dedup", func(t *testing.T) {
		cmds := []message.Command{
			message.DrivetrainStartDriveFwd,
			message.DrivetrainStop,
			message.DrivetrainStop,
			message.DrivetrainDriveTank,
		}
		for _, cmd := range cmds {
			test.That(t, reg.Send("qDrive", message.New(cmd)), test.ShouldBeNil)
		}
		test.That(t, reg.Len("qDrive"), test.ShouldEqual, len(cmds))

		for _, cmd := range cmds {
			msg, err := reader.Receive(ctx, time.Second)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, msg.Command, test.ShouldEqual, cmd)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		start := time.Now()
		_, err := reader.Receive(ctx, 20*time.Millisecond)
		test.That(t, IsTimeout(err), test.ShouldBeTrue)
		test.That(t, time.Since(start), test.ShouldBeGreaterThanOrEqualTo, 20*time.Millisecond)
	})

	t.Run("wakes on send", func(t *testing.T) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = reg.Send("qDrive", message.New(message.DrivetrainTurn))
		}()
		msg, err := reader.Receive(ctx, time.Second)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, msg.Command, test.ShouldEqual, message.DrivetrainTurn)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := reader.Receive(cancelCtx, time.Second)
		test.That(t, err, test.ShouldEqual, context.Canceled)
	})

	t.Run("writers never block", func(t *testing.T) {
		var wg sync.WaitGroup
		const writers = 8
		const perWriter = 500
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w, err := reg.Open("qBulk", WriteOnly)
				if err != nil {
					return
				}
				for j := 0; j < perWriter; j++ {
					_ = w.Send(message.New(message.ConveyorRunFwd))
				}
			}()
		}
		wg.Wait()
		test.That(t, reg.Len("qBulk"), test.ShouldEqual, writers*perWriter)

		bulk, err := reg.Open("qBulk", ReadOnly)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, bulk.Drain(), test.ShouldEqual, writers*perWriter)
		test.That(t, reg.Len("qBulk"), test.ShouldEqual, 0)
	})

	observer.mu.Lock()
	test.That(t, observer.sent["qDrive"], test.ShouldEqual, 5)
	test.That(t, observer.timeouts["qDrive"], test.ShouldEqual, 1)
	observer.mu.Unlock()
}

func TestReceiveAfterClose(t *testing.T) {
	reg := NewRegistry(logging.NewTestLogger(t))
	reader, err := reg.Open("qCanLift", ReadOnly)
	test.That(t, err, test.ShouldBeNil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = reg.Close()
	}()
	_, err = reader.Receive(context.Background(), time.Second)
	test.That(t, IsChannelUnavailable(err), test.ShouldBeTrue)
}

func TestOpenWithRetry(t *testing.T) {
	reg := NewRegistry(logging.NewTestLogger(t))
	first, err := reg.Open("qAuto.reply", ReadOnly)
	test.That(t, err, test.ShouldBeNil)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = first.Close()
	}()
	h, err := OpenWithRetry(context.Background(), reg, "qAuto.reply", ReadOnly, 5*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Name(), test.ShouldEqual, "qAuto.reply")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = OpenWithRetry(ctx, reg, "qAuto.reply", ReadOnly, 5*time.Millisecond)
	test.That(t, IsChannelUnavailable(err), test.ShouldBeTrue)
}
