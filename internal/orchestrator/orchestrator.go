package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gcefire/internal/gce"
	"gcefire/internal/job"
	"gcefire/internal/keys"

	"go.uber.org/zap"
)

// Executor runs a script on a reachable host. Satisfied by remote.Executor.
type Executor interface {
	Run(host, keyPath, scriptPath string, retryWait time.Duration, maxRetry int) (string, error)
}

// Confirmer blocks until the user approves instance deletion. Only consulted
// when a run asks to pause before teardown; its error never stops cleanup.
type Confirmer func(prompt string) error

// Config carries the settings one orchestration run needs.
type Config struct {
	Project      string
	Zone         string
	ImageProject string
	Username     string
	KeyDir       string
	MaxInstances int
}

// Options tune a single Fire invocation.
type Options struct {
	WaitForConfirmation bool
	RetryWait           time.Duration
	MaxRetry            int
}

// instance is the handle to the one node a Fire invocation owns.
type instance struct {
	name       string
	externalIP string
	keyPath    string
}

// Orchestrator runs the full lifecycle of an ephemeral job instance: create,
// grant one-time SSH access, execute, and always tear down. It owns exactly
// one instance at a time; run several orchestrations for several jobs.
type Orchestrator struct {
	api      gce.API
	poller   *gce.Poller
	injector *gce.Injector
	executor Executor
	confirm  Confirmer
	cfg      Config
	log      *zap.Logger
}

func New(api gce.API, executor Executor, confirm Confirmer, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.ImageProject == "" {
		cfg.ImageProject = cfg.Project
	}
	if cfg.Username == "" {
		cfg.Username = "gcefire"
	}
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = 10
	}

	poller := gce.NewPoller(api, log)
	return &Orchestrator{
		api:      api,
		poller:   poller,
		injector: gce.NewInjector(api, poller, cfg.KeyDir, log),
		executor: executor,
		confirm:  confirm,
		cfg:      cfg,
		log:      log,
	}
}

// Fire provisions an instance for the job, runs its script remotely and
// returns the captured stdout. Once the instance exists, teardown is
// guaranteed: every failure past that point still deletes the instance and
// erases the local private key, and a cleanup failure is reported alongside
// the original error rather than in place of it.
func (o *Orchestrator) Fire(ctx context.Context, spec *job.Spec, opts Options) (output string, err error) {
	if opts.RetryWait <= 0 {
		opts.RetryWait = 5 * time.Second
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 5
	}

	image, err := o.api.ImageFromFamily(ctx, o.cfg.ImageProject, spec.ImageFamily)
	if err != nil {
		return "", err
	}
	o.log.Debug("Image resolved",
		zap.String("family", spec.ImageFamily),
		zap.String("image", image.SelfLink))

	// Cap check before creating anything. This is read-then-act and two
	// concurrent runs can both pass it; the cap is best effort, not a lock.
	existing, err := o.api.ListInstances(ctx, o.cfg.Zone)
	if err != nil {
		return "", err
	}
	if len(existing) > o.cfg.MaxInstances {
		return "", fmt.Errorf("%d instances in zone %s (cap %d): %w",
			len(existing), o.cfg.Zone, o.cfg.MaxInstances, gce.ErrTooManyInstances)
	}

	body, err := gce.BuildInstanceSpec(spec, o.cfg.Project, o.cfg.Zone, image.SelfLink)
	if err != nil {
		return "", err
	}

	o.log.Info("Creating instance",
		zap.String("instance", spec.Name),
		zap.String("zone", o.cfg.Zone),
		zap.String("machine_type", spec.MachineType),
		zap.Bool("preemptible", spec.Preemptible))
	createOp, err := o.api.InsertInstance(ctx, o.cfg.Zone, body)
	if err != nil {
		return "", err
	}
	if _, err := o.poller.Await(ctx, o.cfg.Zone, createOp.Name); err != nil {
		return "", fmt.Errorf("creating instance %s: %w", spec.Name, err)
	}

	inst := &instance{name: spec.Name}

	// The instance exists now. From here on every path, success or failure,
	// goes through cleanup. A canceled context must not skip teardown.
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if cerr := o.cleanup(cleanupCtx, inst, opts.WaitForConfirmation); cerr != nil {
			o.log.Error("Cleanup failed", zap.String("instance", inst.name), zap.Error(cerr))
			if err != nil {
				err = fmt.Errorf("%w (cleanup also failed: %v)", err, cerr)
			} else {
				err = fmt.Errorf("cleanup of instance %s: %w", inst.name, cerr)
			}
		}
	}()

	instances, err := o.api.ListInstances(ctx, o.cfg.Zone)
	if err != nil {
		return "", err
	}
	if instances == nil {
		// Creation reported success, the list endpoint disagrees. Fatal
		// consistency violation, never retried.
		return "", gce.ErrNoInstancesReported
	}
	o.log.Info("Instances in zone",
		zap.String("project", o.cfg.Project),
		zap.String("zone", o.cfg.Zone))
	for _, item := range instances {
		o.log.Info(" - " + item.Name)
	}

	keyPath, externalIP, err := o.injector.Inject(ctx, o.cfg.Zone, inst.name, o.cfg.Username)
	if err != nil {
		return "", err
	}
	inst.keyPath = keyPath
	inst.externalIP = externalIP

	output, err = o.executor.Run(inst.externalIP, inst.keyPath, spec.ScriptPath, opts.RetryWait, opts.MaxRetry)
	if err != nil {
		return "", err
	}
	return output, nil
}

// cleanup deletes the instance and the local private key. Called exactly
// once per created instance.
func (o *Orchestrator) cleanup(ctx context.Context, inst *instance, wait bool) error {
	if wait && o.confirm != nil {
		if err := o.confirm(fmt.Sprintf("DELETE instance %s?", inst.name)); err != nil {
			o.log.Warn("Confirmation failed, deleting anyway", zap.Error(err))
		}
	}

	var errs []error

	o.log.Info("Deleting instance", zap.String("instance", inst.name))
	deleteOp, err := o.api.DeleteInstance(ctx, o.cfg.Zone, inst.name)
	if err != nil {
		errs = append(errs, err)
	} else if _, err := o.poller.Await(ctx, o.cfg.Zone, deleteOp.Name); err != nil {
		errs = append(errs, fmt.Errorf("deleting instance %s: %w", inst.name, err))
	}

	if inst.keyPath != "" {
		o.log.Debug("Deleting local key file", zap.String("path", inst.keyPath))
		if err := keys.Delete(inst.keyPath); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
