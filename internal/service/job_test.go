package service_test

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/config"
	"github.com/michiboo/sdg11-backend/internal/jobs"
	"github.com/michiboo/sdg11-backend/internal/service"
	"github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/internal/store/model"
)

type fakeQueue struct {
	enqueued []jobs.AnalysisArgs
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, args jobs.AnalysisArgs) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, args)
	return nil
}

var _ = Describe("job service", Ordered, func() {
	var (
		s             store.Store
		gormdb        *gorm.DB
		queue         *fakeQueue
		artifactStore *artifacts.InMemoryStore
		srv           *service.JobService
	)

	BeforeAll(func() {
		cfg, err := config.NewDefault()
		Expect(err).To(BeNil())
		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		queue = &fakeQueue{}
		artifactStore = artifacts.NewInMemoryStore()
		srv = service.NewJobService(s, queue, artifactStore, nil)
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM jobs;")
	})

	Context("create", func() {
		It("registers and enqueues a job", func() {
			job, err := srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: -0.1257, Lat: 51.508})
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusPending))

			Expect(queue.enqueued).To(HaveLen(1))
			Expect(queue.enqueued[0].ID).To(Equal(job.ID))
			Expect(queue.enqueued[0].Type).To(Equal(model.JobTypeCentrality))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Lng).To(Equal(-0.1257))
			Expect(stored.Lat).To(Equal(51.508))
		})

		It("rejects out of range coordinates", func() {
			_, err := srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: 181, Lat: 0})
			var invalidErr *service.ErrInvalidParameters
			Expect(errors.As(err, &invalidErr)).To(BeTrue())

			_, err = srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: 0, Lat: -91})
			Expect(errors.As(err, &invalidErr)).To(BeTrue())

			Expect(queue.enqueued).To(BeEmpty())
		})

		It("rejects non finite coordinates", func() {
			_, err := srv.CreateJob(context.TODO(), model.JobTypeWalkability, service.JobParams{Lng: math.NaN(), Lat: 0})
			var invalidErr *service.ErrInvalidParameters
			Expect(errors.As(err, &invalidErr)).To(BeTrue())

			_, err = srv.CreateJob(context.TODO(), model.JobTypeWalkability, service.JobParams{Lng: 0, Lat: math.Inf(1)})
			Expect(errors.As(err, &invalidErr)).To(BeTrue())
		})

		It("rolls the registry entry back when the queue is down", func() {
			queue.err = errors.New("connection refused")

			_, err := srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: 0, Lat: 0})
			var queueErr *service.ErrQueueUnavailable
			Expect(errors.As(err, &queueErr)).To(BeTrue())

			var count int
			tx := gormdb.Raw("SELECT COUNT(*) FROM jobs;").Scan(&count)
			Expect(tx.Error).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("accepts a resubmission after an enqueue failure", func() {
			queue.err = errors.New("connection refused")
			_, err := srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: 0, Lat: 0})
			Expect(err).NotTo(BeNil())

			queue.err = nil
			job, err := srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: 0, Lat: 0})
			Expect(err).To(BeNil())
			Expect(queue.enqueued).To(HaveLen(1))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusPending))
		})
	})

	Context("get", func() {
		It("returns the job", func() {
			created, err := srv.CreateJob(context.TODO(), model.JobTypeWalkability, service.JobParams{Lng: 2.35, Lat: 48.85})
			Expect(err).To(BeNil())

			job, err := srv.GetJob(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(job.Type).To(Equal(model.JobTypeWalkability))
		})

		It("returns not found for an unknown id", func() {
			_, err := srv.GetJob(context.TODO(), uuid.New())
			var notFoundErr *service.ErrJobNotFound
			Expect(errors.As(err, &notFoundErr)).To(BeTrue())
		})
	})

	Context("result", func() {
		It("refuses while the job is not successful", func() {
			created, err := srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: 0, Lat: 0})
			Expect(err).To(BeNil())

			_, err = srv.GetJobResult(context.TODO(), created.ID)
			var notReadyErr *service.ErrJobNotReady
			Expect(errors.As(err, &notReadyErr)).To(BeTrue())

			_, err = s.Job().MarkStarted(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			_, err = srv.GetJobResult(context.TODO(), created.ID)
			Expect(errors.As(err, &notReadyErr)).To(BeTrue())

			_, err = s.Job().MarkFailed(context.TODO(), created.ID, "boom")
			Expect(err).To(BeNil())
			_, err = srv.GetJobResult(context.TODO(), created.ID)
			Expect(errors.As(err, &notReadyErr)).To(BeTrue())
		})

		It("returns the artifact of a successful job", func() {
			created, err := srv.CreateJob(context.TODO(), model.JobTypeCentrality, service.JobParams{Lng: 0, Lat: 0})
			Expect(err).To(BeNil())

			ref, err := artifactStore.Put(context.TODO(), created.ID, artifacts.Artifact{
				Image: []byte("png"),
				Stats: []artifacts.Stat{{Name: "impedanceFactor", Value: 0.08}},
			})
			Expect(err).To(BeNil())

			_, err = s.Job().MarkStarted(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			_, err = s.Job().MarkSucceeded(context.TODO(), created.ID, ref)
			Expect(err).To(BeNil())

			artifact, err := srv.GetJobResult(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(artifact.Image).To(Equal([]byte("png")))
			Expect(artifact.Stats).To(HaveLen(1))

			// fetching a result is repeatable
			again, err := srv.GetJobResult(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(again.Image).To(Equal(artifact.Image))
		})

		It("returns not found for an unknown id", func() {
			_, err := srv.GetJobResult(context.TODO(), uuid.New())
			var notFoundErr *service.ErrJobNotFound
			Expect(errors.As(err, &notFoundErr)).To(BeTrue())
		})
	})
})
