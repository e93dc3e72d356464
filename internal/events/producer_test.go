package events

import (
	"bytes"
	"context"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("writes successfully", func() {
			w := newTestWriter()
			kp := NewEventProducer(w)

			// add the first message
			msg := []byte("msg1")
			err := kp.Write(context.TODO(), JobMessageKind, bytes.NewReader(msg))
			Expect(err).To(BeNil())

			msg = []byte("msg2")
			err = kp.Write(context.TODO(), JobMessageKind, bytes.NewReader(msg))
			Expect(err).To(BeNil())

			Eventually(w.Len, "2s", "50ms").Should(Equal(2))
			Expect(w.Message(0).Context.GetType()).To(Equal(JobMessageKind))
			Expect(w.Message(0).Context.GetSource()).To(Equal(eventSource))

			_ = kp.Close()
		})

		It("stamps events with the configured source", func() {
			w := newTestWriter()
			kp := NewEventProducer(w, WithEventSource("sdg11.urban.staging"))

			err := kp.Write(context.TODO(), JobMessageKind, bytes.NewReader([]byte("msg")))
			Expect(err).To(BeNil())

			Eventually(w.Len, "2s", "50ms").Should(Equal(1))
			Expect(w.Message(0).Context.GetSource()).To(Equal("sdg11.urban.staging"))

			_ = kp.Close()
		})
	})
})

type testwriter struct {
	lock     sync.Mutex
	messages []cloudevents.Event
}

func newTestWriter() *testwriter {
	return &testwriter{messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.messages = append(t.messages, e)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}

func (t *testwriter) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.messages)
}

func (t *testwriter) Message(i int) cloudevents.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.messages[i]
}
