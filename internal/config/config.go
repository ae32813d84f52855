package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/common/fsutil"
	"github.com/deploymenttheory/go-disk-defrag/internal/common/osutil"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "defrag"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "DEFRAG"

	// DefaultOutput is the fixed output image name
	DefaultOutput = "disk_defrag"
)

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	Quiet     bool   `mapstructure:"quiet"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Defragmentation settings
	Defrag struct {
		Output               string `mapstructure:"output"`
		RebuildInodeFreeList bool   `mapstructure:"rebuild_inode_freelist"`
	} `mapstructure:"defrag"`

	// Verification settings
	Verify struct {
		Expected       string `mapstructure:"expected"`
		FailOnMismatch bool   `mapstructure:"fail_on_mismatch"`
		Digest         string `mapstructure:"digest"` // blake2b or sha256
	} `mapstructure:"verify"`

	// Report settings
	Report struct {
		Path   string `mapstructure:"path"`
		Format string `mapstructure:"format"` // json, yaml, plist; inferred from path when empty
	} `mapstructure:"report"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	initOnce sync.Once
)

// Initialize sets up the configuration system. Only the first call has any effect;
// Reload forces a re-read from an explicit file.
func Initialize(cfgFile string) error {
	var err error
	initOnce.Do(func() {
		err = load(cfgFile)
	})
	return err
}

// Reload re-reads configuration from cfgFile, replacing Instance
func Reload(cfgFile string) error {
	return load(cfgFile)
}

// Viper exposes the underlying viper instance for flag binding
func Viper() *viper.Viper {
	if v == nil {
		v = viper.New()
		setDefaults(v)
	}
	return v
}

func load(cfgFile string) error {
	next := viper.New()
	setDefaults(next)

	if cfgFile != "" {
		next.SetConfigFile(cfgFile)
	} else {
		next.SetConfigName(AppName)
		next.SetConfigType("yaml")
		addSearchPaths(next)
	}

	next.SetEnvPrefix(EnvPrefix)
	next.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	next.AutomaticEnv()

	var err error
	if readErr := next.ReadInConfig(); readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			err = fmt.Errorf("%w: %v", commonerrors.ErrConfigParseError, readErr)
		}
		ConfigLoaded = false
		ConfigFile = ""
	} else {
		ConfigLoaded = true
		ConfigFile = next.ConfigFileUsed()
	}

	var cfg AppConfig
	if unmarshalErr := next.Unmarshal(&cfg); unmarshalErr != nil {
		return fmt.Errorf("%w: %v", commonerrors.ErrConfigParseError, unmarshalErr)
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return validateErr
	}

	v = next
	Instance = cfg
	return err
}

// Refresh re-unmarshals the current viper state (defaults, file, env and bound
// flags) into Instance
func Refresh() error {
	var cfg AppConfig
	if err := Viper().Unmarshal(&cfg); err != nil {
		return fmt.Errorf("%w: %v", commonerrors.ErrConfigParseError, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	Instance = cfg
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("quiet", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	v.SetDefault("defrag.output", DefaultOutput)
	v.SetDefault("defrag.rebuild_inode_freelist", false)

	v.SetDefault("verify.expected", "")
	v.SetDefault("verify.fail_on_mismatch", false)
	v.SetDefault("verify.digest", "blake2b")

	v.SetDefault("report.path", "")
	v.SetDefault("report.format", "")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")

	if osutil.IsRunningInPipeline() {
		v.AddConfigPath(filepath.Join("/etc", AppName))
		return
	}

	if configDir, err := fsutil.GetConfigDir(AppName); err == nil {
		v.AddConfigPath(configDir)
	}
	if osutil.IsDevEnvironment() {
		return
	}
	if systemConfigDir, err := fsutil.GetSystemConfigDir(AppName); err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}

// Validate checks values that have a closed set of choices
func (c *AppConfig) Validate() error {
	switch c.LogFormat {
	case "json", "human":
	default:
		return fmt.Errorf("%w: log_format %q (want json or human)", commonerrors.ErrConfigInvalid, c.LogFormat)
	}
	switch strings.ToLower(c.Verify.Digest) {
	case "blake2b", "sha256":
	default:
		return fmt.Errorf("%w: verify.digest %q (want blake2b or sha256)", commonerrors.ErrConfigInvalid, c.Verify.Digest)
	}
	switch strings.ToLower(c.Report.Format) {
	case "", "json", "yaml", "yml", "plist":
	default:
		return fmt.Errorf("%w: report.format %q", commonerrors.ErrConfigInvalid, c.Report.Format)
	}
	if c.Defrag.Output == "" {
		return fmt.Errorf("%w: defrag.output must not be empty", commonerrors.ErrConfigInvalid)
	}
	return nil
}
