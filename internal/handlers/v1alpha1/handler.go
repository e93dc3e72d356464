package v1alpha1

import (
	"github.com/michiboo/sdg11-backend/internal/service"
)

type ServiceHandler struct {
	jobSrv *service.JobService
}

func NewServiceHandler(jobSrv *service.JobService) *ServiceHandler {
	return &ServiceHandler{
		jobSrv: jobSrv,
	}
}
