package events

import (
	"bytes"
	"context"
	"encoding/json"
)

// JobEvent reports a job lifecycle transition.
type JobEvent struct {
	JobID  string `json:"job_id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Cause  string `json:"cause,omitempty"`
}

// EmitJobEvent marshals a lifecycle transition and hands it to the producer.
// A nil producer disables event emission.
func EmitJobEvent(ctx context.Context, ep *EventProducer, event JobEvent) error {
	if ep == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return ep.Write(ctx, JobMessageKind, bytes.NewReader(payload))
}
