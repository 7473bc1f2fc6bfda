package gce

import (
	"context"
	"fmt"

	compute "google.golang.org/api/compute/v1"
)

// stubAPI lets each test script exactly the control-plane behavior it needs.
// Unset methods fail loudly so tests cannot silently exercise the wrong path.
type stubAPI struct {
	imageFromFamily  func(project, family string) (*compute.Image, error)
	insertInstance   func(zone string, spec *compute.Instance) (*compute.Operation, error)
	getInstance      func(zone, name string) (*compute.Instance, error)
	setMetadata      func(zone, name string, metadata *compute.Metadata) (*compute.Operation, error)
	deleteInstance   func(zone, name string) (*compute.Operation, error)
	listInstances    func(zone string) ([]*compute.Instance, error)
	getZoneOperation func(zone, name string) (*compute.Operation, error)
}

func (s *stubAPI) ImageFromFamily(_ context.Context, project, family string) (*compute.Image, error) {
	if s.imageFromFamily == nil {
		return nil, fmt.Errorf("unexpected ImageFromFamily call")
	}
	return s.imageFromFamily(project, family)
}

func (s *stubAPI) InsertInstance(_ context.Context, zone string, spec *compute.Instance) (*compute.Operation, error) {
	if s.insertInstance == nil {
		return nil, fmt.Errorf("unexpected InsertInstance call")
	}
	return s.insertInstance(zone, spec)
}

func (s *stubAPI) GetInstance(_ context.Context, zone, name string) (*compute.Instance, error) {
	if s.getInstance == nil {
		return nil, fmt.Errorf("unexpected GetInstance call")
	}
	return s.getInstance(zone, name)
}

func (s *stubAPI) SetMetadata(_ context.Context, zone, name string, metadata *compute.Metadata) (*compute.Operation, error) {
	if s.setMetadata == nil {
		return nil, fmt.Errorf("unexpected SetMetadata call")
	}
	return s.setMetadata(zone, name, metadata)
}

func (s *stubAPI) DeleteInstance(_ context.Context, zone, name string) (*compute.Operation, error) {
	if s.deleteInstance == nil {
		return nil, fmt.Errorf("unexpected DeleteInstance call")
	}
	return s.deleteInstance(zone, name)
}

func (s *stubAPI) ListInstances(_ context.Context, zone string) ([]*compute.Instance, error) {
	if s.listInstances == nil {
		return nil, fmt.Errorf("unexpected ListInstances call")
	}
	return s.listInstances(zone)
}

func (s *stubAPI) GetZoneOperation(_ context.Context, zone, name string) (*compute.Operation, error) {
	if s.getZoneOperation == nil {
		return nil, fmt.Errorf("unexpected GetZoneOperation call")
	}
	return s.getZoneOperation(zone, name)
}

func doneOperation(name string) *compute.Operation {
	return &compute.Operation{Name: name, Status: statusDone}
}
