package job

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v2"
)

// instance names must be valid resource-name tokens
var nameRe = regexp.MustCompile(`^[a-z]([-a-z0-9]*[a-z0-9])?$`)

// MetadataItem is a single key/value entry attached to the instance.
type MetadataItem struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Spec describes one unit of work: the script to run, the image to run it
// on and the machine shape to run it with. The job name doubles as the
// instance name.
type Spec struct {
	Name              string           `yaml:"name"`
	ScriptPath        string           `yaml:"script"`
	ImageFamily       string           `yaml:"image_family"`
	MachineType       string           `yaml:"machine_type"`
	Accelerators      map[string]int64 `yaml:"accelerators"`
	Preemptible       bool             `yaml:"preemptible"`
	Metadata          []MetadataItem   `yaml:"metadata"`
	StartupScriptPath string           `yaml:"startup_script"`
}

// Load reads and validates a job spec from a YAML file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	spec := &Spec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job %s: %w", path, err)
	}

	return spec, nil
}

// Validate checks required fields and fills in defaults.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !nameRe.MatchString(s.Name) {
		return fmt.Errorf("name %q is not a valid instance name", s.Name)
	}
	if s.ScriptPath == "" {
		return fmt.Errorf("script is required")
	}
	if s.ImageFamily == "" {
		return fmt.Errorf("image_family is required")
	}
	if s.MachineType == "" {
		s.MachineType = "n1-standard-4"
	}
	for label, count := range s.Accelerators {
		if count <= 0 {
			return fmt.Errorf("accelerator %q has non-positive count %d", label, count)
		}
	}
	return nil
}
