package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/medreferral/medbot/pkg/logging"
)

// ReplyPusher delivers outcome wording back into a live conversation. A
// push to a conversation that is no longer connected is dropped silently.
type ReplyPusher interface {
	Push(conversationID string, messages []string)
}

// DispatcherConfig tunes the background send workers.
type DispatcherConfig struct {
	Workers          int
	ReceiveBatchSize int
	ReceiveWaitSecs  int
	// Observer, when set, is called after every send attempt.
	Observer func(kind Kind, success bool)
}

// Dispatcher runs queue-backed fire-and-forget email workers. A send
// attempt's outcome selects which wording is pushed back to the
// conversation; it never feeds back into conversation state.
type Dispatcher struct {
	queue  queueClient
	mailer *Mailer
	pusher ReplyPusher
	logger *logging.Logger
	cfg    DispatcherConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher wires the queue, mailer and reply pusher together. Call
// Start to launch the workers.
func NewDispatcher(queue queueClient, mailer *Mailer, pusher ReplyPusher, logger *logging.Logger, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.ReceiveBatchSize <= 0 {
		cfg.ReceiveBatchSize = 5
	}
	if cfg.ReceiveWaitSecs < 0 {
		cfg.ReceiveWaitSecs = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:  queue,
		mailer: mailer,
		pusher: pusher,
		logger: logger.Component("notify"),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the background workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.runWorker(i)
	}
}

// Enqueue queues one email job. The caller is never blocked on the send
// itself.
func (d *Dispatcher) Enqueue(ctx context.Context, req *Request) error {
	if req == nil {
		return errors.New("notify: nil request")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("notify: failed to encode request: %w", err)
	}
	if err := d.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("notify: failed to enqueue request: %w", err)
	}
	return nil
}

// Shutdown stops the workers and waits for in-flight jobs, or for ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) runWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("notification worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("notification worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := d.queue.Receive(d.ctx, d.cfg.ReceiveBatchSize, d.cfg.ReceiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("failed to receive notification jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			d.handleQueueMessage(msg)
		}
	}
}

func (d *Dispatcher) handleQueueMessage(msg queueMessage) {
	defer func() {
		deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.queue.Delete(deleteCtx, msg.ReceiptHandle); err != nil {
			d.logger.Error("failed to delete notification job", "error", err)
		}
	}()

	var req Request
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		d.logger.Error("failed to decode notification job", "error", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := d.mailer.Send(sendCtx, &req)
	success := err == nil
	if err != nil {
		d.logger.Warn("notification send failed",
			"kind", string(req.Kind),
			"appointment_id", req.AppointmentID,
			"error", err,
		)
	} else {
		d.logger.Info("notification sent",
			"kind", string(req.Kind),
			"appointment_id", req.AppointmentID,
		)
	}
	if d.cfg.Observer != nil {
		d.cfg.Observer(req.Kind, success)
	}

	if d.pusher == nil || req.ConversationID == "" {
		return
	}
	wording := req.SuccessMessage
	if !success {
		wording = req.FailureMessage
	}
	if wording != "" {
		d.pusher.Push(req.ConversationID, []string{wording})
	}
}
