package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/medreferral/medbot/pkg/logging"
)

type recordingPusher struct {
	mu     sync.Mutex
	pushed map[string][]string
	done   chan struct{}
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{pushed: make(map[string][]string), done: make(chan struct{}, 8)}
}

func (p *recordingPusher) Push(conversationID string, messages []string) {
	p.mu.Lock()
	p.pushed[conversationID] = append(p.pushed[conversationID], messages...)
	p.mu.Unlock()
	p.done <- struct{}{}
}

func (p *recordingPusher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pushed reply")
	}
}

func (p *recordingPusher) messages(conversationID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pushed[conversationID]...)
}

func startDispatcher(t *testing.T, sender EmailSender, pusher ReplyPusher, observer func(Kind, bool)) *Dispatcher {
	t.Helper()
	d := NewDispatcher(
		NewMemoryQueue(8),
		NewMailer(sender, logging.New("error")),
		pusher,
		logging.New("error"),
		DispatcherConfig{Workers: 1, Observer: observer},
	)
	d.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return d
}

func TestDispatcher_PushesSuccessWording(t *testing.T) {
	pusher := newRecordingPusher()
	d := startDispatcher(t, &captureSender{}, pusher, nil)

	req := confirmationRequest()
	req.ConversationID = "conv-1"
	req.SuccessMessage = "all good"
	req.FailureMessage = "went wrong"
	if err := d.Enqueue(context.Background(), req); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pusher.wait(t)
	got := pusher.messages("conv-1")
	if len(got) != 1 || got[0] != "all good" {
		t.Fatalf("unexpected pushed messages: %v", got)
	}
}

func TestDispatcher_PushesFailureWording(t *testing.T) {
	pusher := newRecordingPusher()
	var observed struct {
		kind    Kind
		success bool
		called  bool
	}
	d := startDispatcher(t, &captureSender{err: errors.New("smtp down")}, pusher, func(kind Kind, success bool) {
		observed.kind = kind
		observed.success = success
		observed.called = true
	})

	req := confirmationRequest()
	req.ConversationID = "conv-2"
	req.SuccessMessage = "all good"
	req.FailureMessage = "went wrong"
	if err := d.Enqueue(context.Background(), req); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pusher.wait(t)
	got := pusher.messages("conv-2")
	if len(got) != 1 || got[0] != "went wrong" {
		t.Fatalf("unexpected pushed messages: %v", got)
	}
	if !observed.called || observed.success || observed.kind != KindConfirmation {
		t.Fatalf("unexpected observer call: %+v", observed)
	}
}

func TestDispatcher_NoConversationNoPush(t *testing.T) {
	sender := &captureSender{}
	pusher := newRecordingPusher()
	d := startDispatcher(t, sender, pusher, nil)

	req := confirmationRequest() // no ConversationID
	if err := d.Enqueue(context.Background(), req); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sender.messages()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(sender.messages()) != 1 {
		t.Fatal("email was never sent")
	}
	select {
	case <-pusher.done:
		t.Fatal("unexpected push for conversation-less request")
	case <-time.After(100 * time.Millisecond):
	}
}
