package remote

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh/knownhosts"
)

// PurgeKnownHost removes host from ~/.ssh/known_hosts. External addresses
// are reused across ephemeral instances with fresh host keys, so a stale
// entry would wedge any strict host-key workflow on this machine. Errors are
// logged and swallowed; the purge is best effort.
func (t *sshTransport) PurgeKnownHost(host string) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.log.Debug("failed to resolve home directory", zap.Error(err))
		return
	}

	path := filepath.Join(home, ".ssh", "known_hosts")
	removed, err := purgeKnownHostsFile(path, host)
	if err != nil {
		t.log.Warn("failed to purge known_hosts entry",
			zap.String("host", host),
			zap.Error(err))
		return
	}
	if removed > 0 {
		t.log.Debug("Removed stale known_hosts entries",
			zap.String("host", host),
			zap.Int("entries", removed))
	}
}

// purgeKnownHostsFile rewrites a known_hosts file without the entries for
// host, returning how many lines were dropped. Hashed entries are left
// alone; they cannot be matched without the key material.
func purgeKnownHostsFile(path, host string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	target := knownhosts.Normalize(host)
	var kept []string
	removed := 0
	for _, line := range strings.Split(string(data), "\n") {
		if matchesKnownHost(line, target) {
			removed++
			continue
		}
		kept = append(kept, line)
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0o600)
}

func matchesKnownHost(line, target string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "|") {
		return false
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return false
	}
	for _, pattern := range strings.Split(fields[0], ",") {
		if pattern == target {
			return true
		}
	}
	return false
}
