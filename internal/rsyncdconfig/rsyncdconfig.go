// Package rsyncdconfig parses the daemon configuration file of spec.md
// §6.3, using github.com/BurntSushi/toml the way the teacher's Module
// struct already tags its fields for.
package rsyncdconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level daemon configuration (§6.3 "Global").
type Config struct {
	Port           int      `toml:"port"`
	Address        string   `toml:"address"`
	MotdFile       string   `toml:"motd_file"`
	LogFile        string   `toml:"log_file"`
	PidFile        string   `toml:"pid_file"`
	LockFile       string   `toml:"lock_file"`
	SecretsFile    string   `toml:"secrets_file"`
	HostsAllow     []string `toml:"hosts_allow"`
	HostsDeny      []string `toml:"hosts_deny"`
	NumericIDs     bool     `toml:"numeric_ids"`
	ReadOnly       bool     `toml:"read_only"`
	WriteOnly      bool     `toml:"write_only"`
	List           bool     `toml:"list"`
	MaxConnections int      `toml:"max_connections"`
	RefuseOptions  []string `toml:"refuse_options"`

	// DontNamespace disables the mount-namespace re-exec maincmd otherwise
	// performs before serving; only valid alongside an authorized_ssh
	// listener, where the SSH daemon itself already constrains the peer.
	DontNamespace bool `toml:"dont_namespace"`

	Modules   []Module   `toml:"modules"`
	Listeners []Listener `toml:"listener"`
}

// Module is one `[[modules]]` entry (§6.3 "Module"), carrying the same
// field set and struct tags the teacher's rsyncd.Module already uses.
type Module struct {
	Name          string   `toml:"name"`
	Path          string   `toml:"path"`
	Comment       string   `toml:"comment"`
	ReadOnly      bool     `toml:"read_only"`
	WriteOnly     bool     `toml:"write_only"`
	Writable      bool     `toml:"writable"`
	HostsAllow    []string `toml:"hosts_allow"`
	HostsDeny     []string `toml:"hosts_deny"`
	AuthUsers     []string `toml:"auth_users"`
	SecretsFile   string   `toml:"secrets_file"`
	NumericIDs    bool     `toml:"numeric_ids"`
	RefuseOptions []string `toml:"refuse_options"`
}

// Listener is one `[[listener]]` block. Precisely one of Rsyncd, AnonSSH or
// AuthorizedSSH.Address should be set, selecting plain TCP, anonymous-SSH
// (any client accepted, no auth) or authorized-SSH (client must present a
// key listed in AuthorizedSSH.AuthorizedKeys) transport for that address.
type Listener struct {
	Rsyncd        string              `toml:"rsyncd"`
	AnonSSH       string              `toml:"anon_ssh"`
	AuthorizedSSH AuthorizedSSHConfig `toml:"authorized_ssh"`
}

// AuthorizedSSHConfig configures an authorized-SSH listener.
type AuthorizedSSHConfig struct {
	Address        string `toml:"address"`
	AuthorizedKeys string `toml:"authorized_keys"`
	HostKey        string `toml:"host_key"`
}

// DefaultPaths is searched in order by FromDefaultFiles, mirroring classic
// rsyncd.conf search locations.
var DefaultPaths = []string{
	"/etc/oc-rsyncd.toml",
	"/etc/oc-rsyncd.conf",
}

// FromDefaultFiles loads the first readable path in DefaultPaths, also
// returning that path for logging.
func FromDefaultFiles() (*Config, string, error) {
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			cfg, err := FromFile(p)
			return cfg, p, err
		}
	}
	return nil, "", os.ErrNotExist
}

// FromFile parses the TOML config at path.
func FromFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("rsyncdconfig: %s: %w", path, err)
	}
	for i := range cfg.Modules {
		if cfg.Modules[i].Name == "" {
			return nil, fmt.Errorf("rsyncdconfig: %s: module %d missing name", path, i)
		}
		if cfg.Modules[i].Path == "" {
			return nil, fmt.Errorf("rsyncdconfig: %s: module %q missing path", path, cfg.Modules[i].Name)
		}
		if !cfg.Modules[i].ReadOnly {
			cfg.Modules[i].Writable = true
		}
	}
	return &cfg, nil
}
