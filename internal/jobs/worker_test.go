package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/riverqueue/river"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/config"
	"github.com/michiboo/sdg11-backend/internal/events"
	"github.com/michiboo/sdg11-backend/internal/jobs"
	"github.com/michiboo/sdg11-backend/internal/pipeline"
	"github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/internal/store/model"
)

func TestJobs(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Jobs Suite")
}

var _ = Describe("AnalysisArgs", func() {
	Describe("Kind", func() {
		It("returns the job kind", func() {
			args := jobs.AnalysisArgs{}
			Expect(args.Kind()).To(Equal("urban_analysis"))
		})
	})

	Describe("InsertOpts", func() {
		It("targets the analysis queue", func() {
			args := jobs.AnalysisArgs{}
			opts := args.InsertOpts()
			Expect(opts.Queue).To(Equal(jobs.DefaultQueue))
		})
	})
})

type capturingWriter struct {
	mu     sync.Mutex
	events []cloudevents.Event
}

func (w *capturingWriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, e)
	return nil
}

func (w *capturingWriter) Close(ctx context.Context) error { return nil }

func (w *capturingWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

func (w *capturingWriter) Kinds() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	kinds := make([]string, 0, len(w.events))
	for _, e := range w.events {
		kinds = append(kinds, e.Type())
	}
	return kinds
}

func (w *capturingWriter) Payloads() []events.JobEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	payloads := make([]events.JobEvent, 0, len(w.events))
	for _, e := range w.events {
		var event events.JobEvent
		Expect(json.Unmarshal(e.Data(), &event)).To(Succeed())
		payloads = append(payloads, event)
	}
	return payloads
}

type stubPipeline struct {
	artifact *artifacts.Artifact
	err      error
	calls    int
}

func (p *stubPipeline) Run(ctx context.Context, params pipeline.Params) (*artifacts.Artifact, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.artifact, nil
}

var _ = Describe("AnalysisWorker", Ordered, func() {
	var (
		s             store.Store
		artifactStore *artifacts.InMemoryStore
	)

	BeforeAll(func() {
		cfg, err := config.NewDefault()
		Expect(err).To(BeNil())
		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		artifactStore = artifacts.NewInMemoryStore()
	})

	newWorker := func(p pipeline.Pipeline) *jobs.AnalysisWorker {
		registry := pipeline.NewRegistry()
		registry.Register(model.JobTypeCentrality, p)
		return jobs.NewAnalysisWorker(s, artifactStore, registry, nil, time.Minute)
	}

	newJob := func() (uuid.UUID, *river.Job[jobs.AnalysisArgs]) {
		jobID := uuid.New()
		_, err := s.Job().Create(context.TODO(), model.Job{
			ID:     jobID,
			Type:   model.JobTypeCentrality,
			Status: model.JobStatusPending,
		})
		Expect(err).To(BeNil())

		return jobID, &river.Job[jobs.AnalysisArgs]{
			Args: jobs.AnalysisArgs{ID: jobID, Type: model.JobTypeCentrality},
		}
	}

	Describe("Timeout", func() {
		It("returns the configured timeout", func() {
			worker := jobs.NewAnalysisWorker(nil, nil, nil, nil, 2*time.Minute)
			Expect(worker.Timeout(nil)).To(Equal(2 * time.Minute))
		})

		It("falls back to the default timeout", func() {
			worker := jobs.NewAnalysisWorker(nil, nil, nil, nil, 0)
			Expect(worker.Timeout(nil)).To(Equal(jobs.DefaultJobTimeout))
		})
	})

	Describe("Work", func() {
		It("runs the pipeline and records success", func() {
			worker := newWorker(&stubPipeline{artifact: &artifacts.Artifact{Image: []byte("png")}})
			jobID, job := newJob()

			Expect(worker.Work(context.TODO(), job)).To(BeNil())

			entry, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entry.Status).To(Equal(model.JobStatusSuccess))
			Expect(entry.ResultRef).NotTo(BeEmpty())

			artifact, err := artifactStore.Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(artifact.Image).To(Equal([]byte("png")))
		})

		It("records failure without requeueing on a pipeline error", func() {
			worker := newWorker(&stubPipeline{err: pipeline.NewErrEmptyNetwork()})
			jobID, job := newJob()

			// returning nil acknowledges the delivery: pipeline faults are
			// terminal, a retry would hit the same data
			Expect(worker.Work(context.TODO(), job)).To(BeNil())

			entry, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entry.Status).To(Equal(model.JobStatusFailure))
			Expect(entry.Cause).NotTo(BeEmpty())
		})

		It("records a timeout as failure", func() {
			worker := newWorker(&stubPipeline{err: context.DeadlineExceeded})
			jobID, job := newJob()

			Expect(worker.Work(context.TODO(), job)).To(BeNil())

			entry, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entry.Status).To(Equal(model.JobStatusFailure))
			Expect(entry.Cause).To(Equal("analysis timed out"))
		})

		It("hands a cancelled job back to the queue", func() {
			worker := newWorker(&stubPipeline{err: context.Canceled})
			jobID, job := newJob()

			err := worker.Work(context.TODO(), job)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())

			// the registry entry stays non terminal for the redelivery
			entry, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entry.Status).To(Equal(model.JobStatusStarted))
		})

		It("skips a job already in a terminal state", func() {
			stub := &stubPipeline{artifact: &artifacts.Artifact{Image: []byte("png")}}
			worker := newWorker(stub)
			jobID, job := newJob()

			_, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())
			_, err = s.Job().MarkSucceeded(context.TODO(), jobID, "ref")
			Expect(err).To(BeNil())

			Expect(worker.Work(context.TODO(), job)).To(BeNil())
			Expect(stub.calls).To(Equal(0))

			entry, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entry.ResultRef).To(Equal("ref"))
		})

		It("drops a job whose registry entry is gone", func() {
			worker := newWorker(&stubPipeline{artifact: &artifacts.Artifact{Image: []byte("png")}})
			job := &river.Job[jobs.AnalysisArgs]{
				Args: jobs.AnalysisArgs{ID: uuid.New(), Type: model.JobTypeCentrality},
			}
			Expect(worker.Work(context.TODO(), job)).To(BeNil())
		})
	})

	Describe("lifecycle events", func() {
		var (
			writer   *capturingWriter
			producer *events.EventProducer
		)

		BeforeEach(func() {
			writer = &capturingWriter{}
			producer = events.NewEventProducer(writer)
		})

		AfterEach(func() {
			_ = producer.Close()
		})

		newEmittingWorker := func(p pipeline.Pipeline) *jobs.AnalysisWorker {
			registry := pipeline.NewRegistry()
			registry.Register(model.JobTypeCentrality, p)
			return jobs.NewAnalysisWorker(s, artifactStore, registry, producer, time.Minute)
		}

		It("emits started and succeeded transitions", func() {
			worker := newEmittingWorker(&stubPipeline{artifact: &artifacts.Artifact{Image: []byte("png")}})
			jobID, job := newJob()

			Expect(worker.Work(context.TODO(), job)).To(BeNil())

			Eventually(writer.Len, "2s", "50ms").Should(Equal(2))
			Expect(writer.Kinds()).To(Equal([]string{events.JobMessageKind, events.JobMessageKind}))

			payloads := writer.Payloads()
			Expect(payloads[0].JobID).To(Equal(jobID.String()))
			Expect(payloads[0].Status).To(Equal(string(model.JobStatusStarted)))
			Expect(payloads[1].Status).To(Equal(string(model.JobStatusSuccess)))
		})

		It("emits the failure transition with its cause", func() {
			worker := newEmittingWorker(&stubPipeline{err: context.DeadlineExceeded})
			_, job := newJob()

			Expect(worker.Work(context.TODO(), job)).To(BeNil())

			Eventually(writer.Len, "2s", "50ms").Should(Equal(2))

			payloads := writer.Payloads()
			Expect(payloads[0].Status).To(Equal(string(model.JobStatusStarted)))
			Expect(payloads[1].Status).To(Equal(string(model.JobStatusFailure)))
			Expect(payloads[1].Cause).To(Equal("analysis timed out"))
		})

		It("stays silent for a redelivered terminal job", func() {
			worker := newEmittingWorker(&stubPipeline{artifact: &artifacts.Artifact{Image: []byte("png")}})
			jobID, job := newJob()

			_, err := s.Job().MarkStarted(context.TODO(), jobID)
			Expect(err).To(BeNil())
			_, err = s.Job().MarkSucceeded(context.TODO(), jobID, "ref")
			Expect(err).To(BeNil())

			Expect(worker.Work(context.TODO(), job)).To(BeNil())
			Consistently(writer.Len, "200ms", "50ms").Should(Equal(0))
		})
	})
})
