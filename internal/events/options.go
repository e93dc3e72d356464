package events

// ProducerOptions tune how the EventProducer stamps and routes events.
type ProducerOptions func(e *EventProducer)

// WithOutputTopic overrides the default topic events are published to.
func WithOutputTopic(topic string) ProducerOptions {
	return func(e *EventProducer) {
		e.topic = topic
	}
}

// WithEventSource overrides the cloudevents source attribute, e.g. to tell
// several deployments of the backend apart on a shared broker.
func WithEventSource(source string) ProducerOptions {
	return func(e *EventProducer) {
		e.source = source
	}
}
