package v1alpha1

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/michiboo/sdg11-backend/internal/service"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	"github.com/michiboo/sdg11-backend/pkg/requestid"
)

// RegisterApi mounts the job submission and polling endpoints.
func RegisterApi(router chi.Router, h *ServiceHandler) {
	router.Post("/api/v1/jobs/centrality", func(w http.ResponseWriter, r *http.Request) {
		h.createJob(w, r, model.JobTypeCentrality)
	})
	router.Post("/api/v1/jobs/walkability", func(w http.ResponseWriter, r *http.Request) {
		h.createJob(w, r, model.JobTypeWalkability)
	})
	router.Get("/api/v1/jobs/{id}/status", h.getJobStatus)
	router.Get("/api/v1/jobs/{id}/result", h.getJobResult)
}

func (h *ServiceHandler) createJob(w http.ResponseWriter, r *http.Request, jobType model.JobType) {
	logger := zap.S().Named("job_handler")

	params := &JobParametersRequest{}
	if err := render.Bind(r, params); err != nil {
		_ = render.Render(w, r, ErrorReply{Message: "malformed request body", RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusBadRequest})
		return
	}

	job, err := h.jobSrv.CreateJob(r.Context(), jobType, service.JobParams{Lng: params.Lng, Lat: params.Lat})
	if err != nil {
		logger.Warnf("failed to create %s job: %v", jobType, err)
		switch err.(type) {
		case *service.ErrInvalidParameters:
			_ = render.Render(w, r, ErrorReply{Message: err.Error(), RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusBadRequest})
		case *service.ErrQueueUnavailable:
			_ = render.Render(w, r, ErrorReply{Message: err.Error(), RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusServiceUnavailable})
		default:
			_ = render.Render(w, r, ErrorReply{Message: "failed to create job", RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusInternalServerError})
		}
		return
	}

	_ = render.Render(w, r, JobCreatedReply{ID: job.ID.String()})
}

func (h *ServiceHandler) getJobStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrJobNotFound:
			_ = render.Render(w, r, ErrorReply{Message: err.Error(), RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusNotFound})
		default:
			_ = render.Render(w, r, ErrorReply{Message: "failed to get job status", RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusInternalServerError})
		}
		return
	}

	reply := JobStatusReply{Status: string(job.Status)}
	if job.Status == model.JobStatusFailure {
		reply.Cause = job.Cause
	}
	_ = render.Render(w, r, reply)
}

func (h *ServiceHandler) getJobResult(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	artifact, err := h.jobSrv.GetJobResult(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrJobNotFound:
			_ = render.Render(w, r, ErrorReply{Message: err.Error(), RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusNotFound})
		case *service.ErrJobNotReady:
			_ = render.Render(w, r, ErrorReply{Message: err.Error(), RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusConflict})
		default:
			_ = render.Render(w, r, ErrorReply{Message: "failed to get job result", RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusInternalServerError})
		}
		return
	}

	reply := JobResultReply{Image: base64.StdEncoding.EncodeToString(artifact.Image)}
	for _, stat := range artifact.Stats {
		reply.Stats = append(reply.Stats, stat.Value)
	}
	_ = render.Render(w, r, reply)
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = render.Render(w, r, ErrorReply{Message: "invalid job id", RequestId: requestid.FromContextPtr(r.Context()), statusCode: http.StatusBadRequest})
		return uuid.UUID{}, false
	}
	return id, true
}
