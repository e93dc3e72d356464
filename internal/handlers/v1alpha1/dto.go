package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"
)

// JobParametersRequest is the submission body of both analysis types.
type JobParametersRequest struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (p *JobParametersRequest) Bind(r *http.Request) error {
	return nil
}

type JobCreatedReply struct {
	ID string `json:"id"`
}

func (j JobCreatedReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusCreated)
	return nil
}

type JobStatusReply struct {
	Status string `json:"status"`
	Cause  string `json:"cause,omitempty"`
}

func (j JobStatusReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// JobResultReply carries the artifact: the image is base64 encoded to ride
// inside JSON, the stats are present for analysis types that compute them.
type JobResultReply struct {
	Image string    `json:"image"`
	Stats []float64 `json:"stats,omitempty"`
}

func (j JobResultReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type ErrorReply struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`

	statusCode int
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.statusCode)
	return nil
}
