// Package settings manages persistent configuration for the dpbreakout CLI
// and library: where to find YANG models and default-config seeds, and how
// to reach Config DB / Asic DB.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultYangModelDir is where SONiC YANG modules live on a switch.
const DefaultYangModelDir = "/usr/local/yang-models"

// DefaultConfigFile is the seed file searchKeys draws per-port default
// rows from when a breakout requests --load-default.
const DefaultConfigFile = "/etc/sonic/port_breakout_config_db.json"

// DefaultMaxWaitSeconds bounds how long the orchestrator polls Asic DB for
// port release before giving up with AsicNotConvergedError.
const DefaultMaxWaitSeconds = 60

// DefaultAllowTablesWithOutYang matches the original ConfigMgmt
// constructor's allowTablesWithOutYang=True default.
const DefaultAllowTablesWithOutYang = true

// Settings holds persistent configuration for a dpbreakout run.
type Settings struct {
	// YangModelDir overrides the directory the tree store loads .yang
	// modules from.
	YangModelDir string `json:"yang_model_dir,omitempty" yaml:"yang_model_dir,omitempty"`

	// DefaultsFile overrides the per-port default-config seed file.
	DefaultsFile string `json:"defaults_file,omitempty" yaml:"defaults_file,omitempty"`

	// AllowTablesWithOutYang, when true, tolerates config_db tables the
	// loaded YANG models don't cover instead of failing with
	// SchemaCoverageError. A nil pointer means "unset"; GetAllowTablesWithOutYang
	// resolves that to DefaultAllowTablesWithOutYang, matching the original
	// ConfigMgmt constructor's allowTablesWithOutYang=True default. A plain
	// bool can't carry this distinction since its zero value (false) would
	// be indistinguishable from an explicit opt-out.
	AllowTablesWithOutYang *bool `json:"allow_tables_without_yang,omitempty" yaml:"allow_tables_without_yang,omitempty"`

	// ConfigDBAddr is the host:port (or SSH-tunnel target) for Config DB.
	ConfigDBAddr string `json:"config_db_addr,omitempty" yaml:"config_db_addr,omitempty"`

	// AsicDBAddr is the host:port (or SSH-tunnel target) for Asic DB /
	// Counters DB. Usually identical to ConfigDBAddr since both are
	// logical databases on the same Redis instance.
	AsicDBAddr string `json:"asic_db_addr,omitempty" yaml:"asic_db_addr,omitempty"`

	// MaxWaitSeconds overrides how long the orchestrator waits for Asic DB
	// to release deleted ports before failing the transaction.
	MaxWaitSeconds int `json:"max_wait_seconds,omitempty" yaml:"max_wait_seconds,omitempty"`

	// SSHHost, SSHUser and SSHPass, when set, route Config DB / Asic DB
	// access through an SSH tunnel instead of dialing Redis directly.
	SSHHost string `json:"ssh_host,omitempty" yaml:"ssh_host,omitempty"`
	SSHUser string `json:"ssh_user,omitempty" yaml:"ssh_user,omitempty"`
	SSHPass string `json:"ssh_pass,omitempty" yaml:"ssh_pass,omitempty"`
	SSHPort int    `json:"ssh_port,omitempty" yaml:"ssh_port,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/dpbreakout_settings.json"
	}
	return filepath.Join(home, ".dpbreakout", "settings.json")
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. JSON and YAML (.yml/.yaml)
// are both accepted, selected by file extension.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

func isYAMLPath(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path, as JSON or YAML per extension.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAMLPath(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetYangModelDir returns the configured YANG model directory, falling
// back to DefaultYangModelDir.
func (s *Settings) GetYangModelDir() string {
	if s.YangModelDir != "" {
		return s.YangModelDir
	}
	return DefaultYangModelDir
}

// GetDefaultsFile returns the configured defaults seed file, falling back
// to DefaultConfigFile.
func (s *Settings) GetDefaultsFile() string {
	if s.DefaultsFile != "" {
		return s.DefaultsFile
	}
	return DefaultConfigFile
}

// GetMaxWaitSeconds returns the configured Asic DB poll budget, falling
// back to DefaultMaxWaitSeconds.
func (s *Settings) GetMaxWaitSeconds() int {
	if s.MaxWaitSeconds > 0 {
		return s.MaxWaitSeconds
	}
	return DefaultMaxWaitSeconds
}

// GetAllowTablesWithOutYang returns whether extra-table tolerance is
// enabled, falling back to DefaultAllowTablesWithOutYang when unset.
func (s *Settings) GetAllowTablesWithOutYang() bool {
	if s.AllowTablesWithOutYang == nil {
		return DefaultAllowTablesWithOutYang
	}
	return *s.AllowTablesWithOutYang
}

// Clear resets all settings to defaults.
func (s *Settings) Clear() {
	*s = Settings{}
}
