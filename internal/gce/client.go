package gce

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// API is the slice of the compute control plane this tool drives. The
// project is bound at construction; zones vary per call because the same
// client may serve several zones over its lifetime.
type API interface {
	ImageFromFamily(ctx context.Context, project, family string) (*compute.Image, error)
	InsertInstance(ctx context.Context, zone string, spec *compute.Instance) (*compute.Operation, error)
	GetInstance(ctx context.Context, zone, name string) (*compute.Instance, error)
	SetMetadata(ctx context.Context, zone, name string, metadata *compute.Metadata) (*compute.Operation, error)
	DeleteInstance(ctx context.Context, zone, name string) (*compute.Operation, error)
	ListInstances(ctx context.Context, zone string) ([]*compute.Instance, error)
	GetZoneOperation(ctx context.Context, zone, name string) (*compute.Operation, error)
}

// Client implements API against the real Compute Engine service.
type Client struct {
	service *compute.Service
	project string
}

// NewClient creates a compute client for the given project. When
// credentialsFile is empty, application default credentials apply.
func NewClient(ctx context.Context, project, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}

	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}

	return &Client{service: service, project: project}, nil
}

// ImageFromFamily resolves the latest image of a family within a project.
func (c *Client) ImageFromFamily(ctx context.Context, project, family string) (*compute.Image, error) {
	image, err := c.service.Images.GetFromFamily(project, family).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image family %s in project %s: %w", family, project, err)
	}
	return image, nil
}

func (c *Client) InsertInstance(ctx context.Context, zone string, spec *compute.Instance) (*compute.Operation, error) {
	op, err := c.service.Instances.Insert(c.project, zone, spec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert instance %s: %w", spec.Name, err)
	}
	return op, nil
}

func (c *Client) GetInstance(ctx context.Context, zone, name string) (*compute.Instance, error) {
	instance, err := c.service.Instances.Get(c.project, zone, name).Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("instance %s: %w", name, ErrInstanceNotFound)
		}
		return nil, fmt.Errorf("failed to get instance %s: %w", name, err)
	}
	return instance, nil
}

func (c *Client) SetMetadata(ctx context.Context, zone, name string, metadata *compute.Metadata) (*compute.Operation, error) {
	op, err := c.service.Instances.SetMetadata(c.project, zone, name, metadata).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to set metadata on instance %s: %w", name, err)
	}
	return op, nil
}

func (c *Client) DeleteInstance(ctx context.Context, zone, name string) (*compute.Operation, error) {
	op, err := c.service.Instances.Delete(c.project, zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to delete instance %s: %w", name, err)
	}
	return op, nil
}

// ListInstances returns the instances in a zone, or nil when the API
// reports none.
func (c *Client) ListInstances(ctx context.Context, zone string) ([]*compute.Instance, error) {
	result, err := c.service.Instances.List(c.project, zone).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return result.Items, nil
}

func (c *Client) GetZoneOperation(ctx context.Context, zone, name string) (*compute.Operation, error) {
	op, err := c.service.ZoneOperations.Get(c.project, zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get operation %s: %w", name, err)
	}
	return op, nil
}

// IsNotFound reports whether err is the API's 404 response.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
