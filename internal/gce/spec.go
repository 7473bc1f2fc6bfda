package gce

import (
	"fmt"
	"os"
	"sort"

	"gcefire/internal/job"

	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
)

const bootDiskSizeGb = 50

// Scopes granted to the instance's default service account so jobs can reach
// storage, logging and the container registry.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/devstorage.read_write",
	"https://www.googleapis.com/auth/logging.write",
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/monitoring.write",
	"https://www.googleapis.com/auth/service.management.readonly",
	"https://www.googleapis.com/auth/servicecontrol",
	"https://www.googleapis.com/auth/trace.append",
}

// BuildInstanceSpec renders a job into an insert request body. Machine type
// and accelerator type identifiers are zone- and project-qualified, so the
// spec cannot exist before both are known; that is why this is a function of
// (job, project, zone) rather than of the job alone.
func BuildInstanceSpec(spec *job.Spec, project, zone, sourceImage string) (*compute.Instance, error) {
	machineType := fmt.Sprintf("zones/%s/machineTypes/%s", zone, spec.MachineType)

	var accelerators []*compute.AcceleratorConfig
	if len(spec.Accelerators) > 0 {
		labels := make([]string, 0, len(spec.Accelerators))
		for label := range spec.Accelerators {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			accelerators = append(accelerators, &compute.AcceleratorConfig{
				AcceleratorCount: spec.Accelerators[label],
				AcceleratorType:  fmt.Sprintf("projects/%s/zones/%s/acceleratorTypes/%s", project, zone, label),
			})
		}
	}

	items := []*compute.MetadataItems{
		{Key: "serial-port-enable", Value: googleapi.String("FALSE")},
		{Key: "enable-oslogin", Value: googleapi.String("FALSE")},
	}
	for _, item := range spec.Metadata {
		items = append(items, &compute.MetadataItems{Key: item.Key, Value: googleapi.String(item.Value)})
	}

	if spec.StartupScriptPath != "" {
		// The instance runs this itself on boot; a missing file is a
		// configuration error, not something to retry.
		script, err := os.ReadFile(spec.StartupScriptPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read startup script: %w", err)
		}
		items = append(items, &compute.MetadataItems{Key: "startup-script", Value: googleapi.String(string(script))})
	}

	return &compute.Instance{
		Name:        spec.Name,
		MachineType: machineType,
		// TERMINATE and no automatic restart are mandatory for preemptible
		// instances and harmless otherwise.
		Scheduling: &compute.Scheduling{
			Preemptible:       spec.Preemptible,
			OnHostMaintenance: "TERMINATE",
			AutomaticRestart:  googleapi.Bool(false),
		},
		Disks: []*compute.AttachedDisk{
			{
				Boot:       true,
				AutoDelete: true,
				DiskSizeGb: bootDiskSizeGb,
				InitializeParams: &compute.AttachedDiskInitializeParams{
					SourceImage: sourceImage,
				},
			},
		},
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Network: "global/networks/default",
				AccessConfigs: []*compute.AccessConfig{
					{Type: "ONE_TO_ONE_NAT", Name: "External NAT"},
				},
			},
		},
		GuestAccelerators: accelerators,
		ServiceAccounts: []*compute.ServiceAccount{
			{Email: "default", Scopes: defaultScopes},
		},
		Metadata: &compute.Metadata{Items: items},
	}, nil
}
