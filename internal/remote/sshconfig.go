package remote

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHConfig is a set of parsed ssh_config files, consulted in order the way
// OpenSSH does: the first file that sets a keyword for an alias wins.
type SSHConfig struct {
	files []*ssh_config.Config
}

// DefaultSSHConfigPaths are the user and system configuration files.
func DefaultSSHConfigPaths() []string {
	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".ssh", "config"))
	}
	return append(paths, "/etc/ssh/ssh_config")
}

// LoadSSHConfig parses the given files. Missing files are skipped.
func LoadSSHConfig(paths ...string) (*SSHConfig, error) {
	cfg := &SSHConfig{}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("opening ssh config %s: %w", path, err)
		}
		decoded, err := ssh_config.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing ssh config %s: %w", path, err)
		}
		cfg.files = append(cfg.files, decoded)
	}
	return cfg, nil
}

// ParseSSHConfig parses a single configuration document.
func ParseSSHConfig(doc string) (*SSHConfig, error) {
	decoded, err := ssh_config.Decode(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing ssh config: %w", err)
	}
	return &SSHConfig{files: []*ssh_config.Config{decoded}}, nil
}

// Aliases lists every concrete Host alias. Wildcard and negated patterns
// cannot be connected to by name and are left out.
func (c *SSHConfig) Aliases() []string {
	seen := map[string]struct{}{}
	var aliases []string
	for _, f := range c.files {
		for _, host := range f.Hosts {
			for _, pattern := range host.Patterns {
				name := pattern.String()
				if name == "" || strings.ContainsAny(name, "*?!") {
					continue
				}
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				aliases = append(aliases, name)
			}
		}
	}
	return aliases
}

func (c *SSHConfig) get(alias, key string) string {
	for _, f := range c.files {
		if v, err := f.Get(alias, key); err == nil && v != "" {
			return v
		}
	}
	return ""
}

// HostName is the configured HostName of alias, or alias itself.
func (c *SSHConfig) HostName(alias string) string {
	if v := c.get(alias, "HostName"); v != "" {
		return v
	}
	return alias
}

// User is the configured login of alias, or the current OS user.
func (c *SSHConfig) User(alias string) string {
	if v := c.get(alias, "User"); v != "" {
		return v
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// Port is the configured port of alias.
func (c *SSHConfig) Port(alias string) string {
	if v := c.get(alias, "Port"); v != "" {
		return v
	}
	return ssh_config.Default("Port")
}

// IdentityFiles are the keys to offer for alias: the configured one, then the
// usual defaults.
func (c *SSHConfig) IdentityFiles(alias string) []string {
	var files []string
	if v := c.get(alias, "IdentityFile"); v != "" {
		files = append(files, expandHome(v))
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		files = append(files, expandHome(filepath.Join("~", ".ssh", name)))
	}
	return files
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
