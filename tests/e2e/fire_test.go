package e2e_test

import (
	"context"
	"errors"
	"time"

	"gcefire/internal/gce"
	"gcefire/internal/job"
	"gcefire/internal/orchestrator"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	compute "google.golang.org/api/compute/v1"
	"gopkg.in/yaml.v3"
)

// stubAPI is a control plane where every operation succeeds immediately.
type stubAPI struct {
	instanceCount int
	createCalls   int
	deleteCalls   []string
	created       bool
}

func (s *stubAPI) ImageFromFamily(_ context.Context, project, family string) (*compute.Image, error) {
	return &compute.Image{SelfLink: "projects/" + project + "/global/images/family/" + family}, nil
}

func (s *stubAPI) InsertInstance(_ context.Context, zone string, spec *compute.Instance) (*compute.Operation, error) {
	s.createCalls++
	s.created = true
	return &compute.Operation{Name: "insert-op", Status: "DONE"}, nil
}

func (s *stubAPI) GetInstance(_ context.Context, zone, name string) (*compute.Instance, error) {
	return &compute.Instance{
		Name:     name,
		Metadata: &compute.Metadata{Fingerprint: "fp-1"},
		NetworkInterfaces: []*compute.NetworkInterface{
			{AccessConfigs: []*compute.AccessConfig{{NatIP: "203.0.113.9"}}},
		},
	}, nil
}

func (s *stubAPI) SetMetadata(_ context.Context, zone, name string, metadata *compute.Metadata) (*compute.Operation, error) {
	return &compute.Operation{Name: "set-metadata-op", Status: "DONE"}, nil
}

func (s *stubAPI) DeleteInstance(_ context.Context, zone, name string) (*compute.Operation, error) {
	s.deleteCalls = append(s.deleteCalls, name)
	return &compute.Operation{Name: "delete-op", Status: "DONE"}, nil
}

func (s *stubAPI) ListInstances(_ context.Context, zone string) ([]*compute.Instance, error) {
	count := s.instanceCount
	if s.created {
		count++
	}
	if count == 0 {
		return nil, nil
	}
	instances := make([]*compute.Instance, count)
	for i := range instances {
		instances[i] = &compute.Instance{Name: "instance"}
	}
	return instances, nil
}

func (s *stubAPI) GetZoneOperation(_ context.Context, zone, name string) (*compute.Operation, error) {
	return &compute.Operation{Name: name, Status: "DONE"}, nil
}

// stubExecutor immediately returns a canned result.
type stubExecutor struct {
	output string
	err    error
	calls  int
}

func (s *stubExecutor) Run(host, keyPath, scriptPath string, retryWait time.Duration, maxRetry int) (string, error) {
	s.calls++
	return s.output, s.err
}

const jobYAML = `name: t1
script: run.sh
image_family: fam-a
machine_type: n1-standard-4
preemptible: true
`

var _ = Describe("Fire", func() {
	var (
		api      *stubAPI
		executor *stubExecutor
		spec     *job.Spec
	)

	newOrchestrator := func() *orchestrator.Orchestrator {
		return orchestrator.New(api, executor, nil, orchestrator.Config{
			Project:      "proj",
			Zone:         "us-east1-c",
			Username:     "gcefire",
			KeyDir:       GinkgoT().TempDir(),
			MaxInstances: 10,
		}, zap.NewNop())
	}

	BeforeEach(func() {
		api = &stubAPI{}
		executor = &stubExecutor{output: "stub output\n"}

		spec = &job.Spec{}
		Expect(yaml.Unmarshal([]byte(jobYAML), spec)).To(Succeed())
		Expect(spec.Validate()).To(Succeed())
	})

	Context("when every collaborator succeeds", func() {
		It("returns the script output and deletes the instance exactly once", func() {
			output, err := newOrchestrator().Fire(context.Background(), spec, orchestrator.Options{})

			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal("stub output\n"))
			Expect(api.createCalls).To(Equal(1))
			Expect(api.deleteCalls).To(Equal([]string{"t1"}))
		})
	})

	Context("when the execution stub fails", func() {
		It("still deletes the instance exactly once", func() {
			executor.err = errors.New("script blew up")

			_, err := newOrchestrator().Fire(context.Background(), spec, orchestrator.Options{})

			Expect(err).To(MatchError(ContainSubstring("script blew up")))
			Expect(api.deleteCalls).To(Equal([]string{"t1"}))
		})
	})

	Context("when the zone is already over the instance cap", func() {
		It("refuses before creating anything", func() {
			api.instanceCount = 11

			_, err := newOrchestrator().Fire(context.Background(), spec, orchestrator.Options{})

			Expect(errors.Is(err, gce.ErrTooManyInstances)).To(BeTrue())
			Expect(api.createCalls).To(BeZero())
			Expect(api.deleteCalls).To(BeEmpty())
			Expect(executor.calls).To(BeZero())
		})
	})
})
