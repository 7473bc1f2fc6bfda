package gce

import (
	"context"
	"fmt"
	"strings"

	"gcefire/internal/keys"

	"go.uber.org/zap"
	compute "google.golang.org/api/compute/v1"
)

const sshKeysKey = "ssh-keys"

// Injector grants one-time SSH access to an instance by merging a fresh
// public key into its metadata under optimistic concurrency control.
type Injector struct {
	api    API
	poller *Poller
	keyDir string
	log    *zap.Logger
}

func NewInjector(api API, poller *Poller, keyDir string, log *zap.Logger) *Injector {
	return &Injector{api: api, poller: poller, keyDir: keyDir, log: log}
}

// Inject generates a key pair, writes the private key to local secret
// storage and appends "username:publicKey" to the instance's ssh-keys
// metadata. The update carries the fingerprint captured on read, so a
// concurrent metadata writer makes the operation fail instead of losing
// keys. Returns the private key path and the instance's external IP.
func (i *Injector) Inject(ctx context.Context, zone, instanceName, username string) (string, string, error) {
	i.log.Debug("Getting instance data", zap.String("instance", instanceName))
	instance, err := i.api.GetInstance(ctx, zone, instanceName)
	if err != nil {
		return "", "", err
	}
	if instance == nil {
		return "", "", fmt.Errorf("instance %s: %w", instanceName, ErrInstanceNotFound)
	}

	// Split the ssh-keys item out; every other item passes through as-is.
	var keyLines []string
	otherItems := make([]*compute.MetadataItems, 0, len(instance.Metadata.Items))
	for _, item := range instance.Metadata.Items {
		if item.Key == sshKeysKey && item.Value != nil {
			keyLines = append(keyLines, strings.Split(*item.Value, "\n")...)
			continue
		}
		otherItems = append(otherItems, item)
	}

	i.log.Info("Generating key pair", zap.String("instance", instanceName))
	pair, err := keys.Generate(username)
	if err != nil {
		return "", "", err
	}

	keyPath, err := keys.WritePrivateKey(pair.Private, instanceName, i.keyDir)
	if err != nil {
		return "", "", err
	}
	i.log.Info("Private key file written", zap.String("path", keyPath))

	keyLines = append(keyLines, fmt.Sprintf("%s:%s", username, pair.Public))
	merged := strings.Join(keyLines, "\n")

	metadata := &compute.Metadata{
		Items:       append([]*compute.MetadataItems{{Key: sshKeysKey, Value: &merged}}, otherItems...),
		Fingerprint: instance.Metadata.Fingerprint,
	}

	i.log.Info("Adding public key to instance",
		zap.String("instance", instanceName),
		zap.String("user", username))
	op, err := i.api.SetMetadata(ctx, zone, instanceName, metadata)
	if err != nil {
		i.discardKey(keyPath)
		return "", "", err
	}
	if _, err := i.poller.Await(ctx, zone, op.Name); err != nil {
		i.discardKey(keyPath)
		return "", "", fmt.Errorf("metadata update on %s: %w", instanceName, err)
	}

	if len(instance.NetworkInterfaces) == 0 || len(instance.NetworkInterfaces[0].AccessConfigs) == 0 {
		i.discardKey(keyPath)
		return "", "", fmt.Errorf("instance %s has no external address", instanceName)
	}
	externalIP := instance.NetworkInterfaces[0].AccessConfigs[0].NatIP
	i.log.Info("Instance external IP resolved",
		zap.String("instance", instanceName),
		zap.String("external_ip", externalIP))

	return keyPath, externalIP, nil
}

// discardKey removes a key file that never became usable.
func (i *Injector) discardKey(path string) {
	if err := keys.Delete(path); err != nil {
		i.log.Warn("failed to remove unused private key", zap.String("path", path), zap.Error(err))
	}
}
