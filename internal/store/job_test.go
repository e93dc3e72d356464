package store_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/michiboo/sdg11-backend/internal/config"
	st "github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

const (
	insertJobStm = "INSERT INTO jobs (id, created_at, type, status, lng, lat) VALUES ('%s', '%s', '%s', '%s', 0, 0);"
)

var _ = Describe("job store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		cfg, err := config.NewDefault()
		Expect(err).To(BeNil())
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())

		s = st.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM jobs;")
	})

	Context("create", func() {
		It("successfully creates a pending job", func() {
			job, err := s.Job().Create(context.TODO(), model.Job{
				ID:     uuid.New(),
				Type:   model.JobTypeCentrality,
				Status: model.JobStatusPending,
				Lng:    -0.1257,
				Lat:    51.508,
			})
			Expect(err).To(BeNil())
			Expect(job).NotTo(BeNil())

			var count int
			tx := gormdb.Raw("SELECT COUNT(*) FROM jobs;").Scan(&count)
			Expect(tx.Error).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("fails on duplicate id", func() {
			jobID := uuid.New()
			_, err := s.Job().Create(context.TODO(), model.Job{
				ID:     jobID,
				Type:   model.JobTypeCentrality,
				Status: model.JobStatusPending,
			})
			Expect(err).To(BeNil())

			_, err = s.Job().Create(context.TODO(), model.Job{
				ID:     jobID,
				Type:   model.JobTypeCentrality,
				Status: model.JobStatusPending,
			})
			Expect(err).To(Equal(st.ErrDuplicateKey))
		})
	})

	Context("get", func() {
		It("successfully gets a job", func() {
			jobID := uuid.New()
			tx := gormdb.Exec(fmt.Sprintf(insertJobStm, jobID, time.Now().Format(time.RFC3339), model.JobTypeWalkability, model.JobStatusPending))
			Expect(tx.Error).To(BeNil())

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Type).To(Equal(model.JobTypeWalkability))
			Expect(job.Status).To(Equal(model.JobStatusPending))
		})

		It("returns not found for an unknown id", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(Equal(st.ErrRecordNotFound))
		})
	})

	Context("lifecycle", func() {
		var jobID uuid.UUID

		BeforeEach(func() {
			jobID = uuid.New()
			_, err := s.Job().Create(context.TODO(), model.Job{
				ID:     jobID,
				Type:   model.JobTypeCentrality,
				Status: model.JobStatusPending,
			})
			Expect(err).To(BeNil())
		})

		It("moves a pending job to started", func() {
			job, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusStarted))
			Expect(job.UpdatedAt).NotTo(BeNil())
		})

		It("records success with the artifact reference", func() {
			_, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())

			job, err := s.Job().MarkSucceeded(context.TODO(), jobID, jobID.String())
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusSuccess))
			Expect(job.ResultRef).To(Equal(jobID.String()))
		})

		It("records failure with a cause", func() {
			_, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())

			job, err := s.Job().MarkFailed(context.TODO(), jobID, "street network is empty")
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailure))
			Expect(job.Cause).To(Equal("street network is empty"))
		})

		It("never rewinds a terminal job", func() {
			_, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())
			_, err = s.Job().MarkSucceeded(context.TODO(), jobID, jobID.String())
			Expect(err).To(BeNil())

			// a redelivered job must not restart or overwrite the result
			job, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusSuccess))

			job, err = s.Job().MarkFailed(context.TODO(), jobID, "late failure")
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusSuccess))
			Expect(job.Cause).To(BeEmpty())
		})

		It("ignores started for non pending jobs only", func() {
			job, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusStarted))

			// idempotent on redelivery while still running
			job, err = s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusStarted))
		})
	})

	Context("delete", func() {
		It("deletes an existing job", func() {
			jobID := uuid.New()
			_, err := s.Job().Create(context.TODO(), model.Job{
				ID:     jobID,
				Type:   model.JobTypeCentrality,
				Status: model.JobStatusPending,
			})
			Expect(err).To(BeNil())

			Expect(s.Job().Delete(context.TODO(), jobID)).To(BeNil())

			var count int
			tx := gormdb.Raw("SELECT COUNT(*) FROM jobs;").Scan(&count)
			Expect(tx.Error).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("does not fail on an unknown id", func() {
			Expect(s.Job().Delete(context.TODO(), uuid.New())).To(BeNil())
		})
	})

	Context("list expired", func() {
		It("returns only jobs older than the cutoff", func() {
			oldID := uuid.New()
			tx := gormdb.Exec(fmt.Sprintf(insertJobStm, oldID, time.Now().Add(-48*time.Hour).Format(time.RFC3339), model.JobTypeCentrality, model.JobStatusSuccess))
			Expect(tx.Error).To(BeNil())

			_, err := s.Job().Create(context.TODO(), model.Job{
				ID:     uuid.New(),
				Type:   model.JobTypeCentrality,
				Status: model.JobStatusPending,
			})
			Expect(err).To(BeNil())

			expired, err := s.Job().ListExpired(context.TODO(), time.Now().Add(-24*time.Hour))
			Expect(err).To(BeNil())
			Expect(expired).To(HaveLen(1))
			Expect(expired[0].ID).To(Equal(oldID))
		})
	})
})
