package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the main configuration for bckt.
// Values come from the TOML file and may be overridden by BCKT_* environment
// variables (optionally loaded from an rc file).
type Config struct {
	HostID        string           `toml:"host_id" env:"HOST_ID"`
	BaseDir       string           `toml:"base_dir" env:"BASE_DIR" validate:"required"`
	LogDir        string           `toml:"log_dir" env:"LOG_DIR" validate:"required"`
	WorkingFolder string           `toml:"working_folder" env:"WORKING_FOLDER" validate:"required"`
	Database      DatabaseConfig   `toml:"database" envPrefix:"DATABASE_"`
	Vault         VaultConfig      `toml:"vault" envPrefix:"VAULT_"`
	Cache         CacheConfig      `toml:"cache" envPrefix:"CACHE_"`
	Encryption    EncryptionConfig `toml:"encryption" envPrefix:"ENCRYPTION_"`
	Archiver      ArchiverConfig   `toml:"archiver" envPrefix:"ARCHIVER_"`
	Pricing       PricingConfig    `toml:"pricing" envPrefix:"PRICING_"`
	Schedule      ScheduleConfig   `toml:"schedule" envPrefix:"SCHEDULE_"`
	Metrics       MetricsConfig    `toml:"metrics" envPrefix:"METRICS_"`
}

// DatabaseConfig represents configuration for the record store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type" env:"TYPE" validate:"oneof=sqlite memory"`
	DataDir string `toml:"data_dir,omitempty" env:"DATA_DIR" validate:"required_if=Type sqlite"` // only used for type=sqlite
}

// VaultConfig represents configuration for the remote object store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type" env:"TYPE" validate:"oneof=s3 filesystem memory"`
	Name string `toml:"name" env:"NAME"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket           string `toml:"s3_bucket,omitempty" env:"S3_BUCKET" validate:"required_if=Type s3"`
	S3Prefix           string `toml:"s3_prefix,omitempty" env:"S3_PREFIX"`
	S3Region           string `toml:"s3_region,omitempty" env:"S3_REGION"`
	S3Endpoint         string `toml:"s3_endpoint,omitempty" env:"S3_ENDPOINT"`
	S3StorageClass     string `toml:"s3_storage_class,omitempty" env:"S3_STORAGE_CLASS"`
	S3AccessKeyID      string `toml:"s3_access_key_id,omitempty" env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey  string `toml:"s3_secret_access_key,omitempty" env:"S3_SECRET_ACCESS_KEY"`
	MultipartThreshold int64  `toml:"multipart_threshold_mb,omitempty" env:"MULTIPART_THRESHOLD_MB" validate:"gte=0"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty" env:"FS_VAULT_ROOT" validate:"required_if=Type filesystem"`
}

// CacheConfig configures the stats cache used for remote listings and tree scans.
type CacheConfig struct {
	Type string   `toml:"type" env:"TYPE" validate:"oneof=file bolt memory"`
	Path string   `toml:"path,omitempty" env:"PATH" validate:"required_unless=Type memory"`
	TTL  Duration `toml:"ttl" env:"TTL"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt pushed archives.
type EncryptionConfig struct {
	Type           string `toml:"type" env:"TYPE" validate:"oneof=none age test"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path" env:"PUBLIC_KEY_PATH" validate:"required_if=Type age"`
	PrivateKeyPath string `toml:"private_key_path" env:"PRIVATE_KEY_PATH" validate:"required_if=Type age"`
}

// ArchiverConfig configures the tar subprocess.
type ArchiverConfig struct {
	TarPath           string   `toml:"tar_path" env:"TAR_PATH" validate:"required"`
	Timeout           Duration `toml:"timeout" env:"TIMEOUT"`
	ExcludeVCSIgnores bool     `toml:"exclude_vcs_ignores" env:"EXCLUDE_VCS_IGNORES"`
	OneFileSystem     bool     `toml:"one_file_system" env:"ONE_FILE_SYSTEM"`
}

// PricingConfig holds the remote storage price used by cost estimates.
type PricingConfig struct {
	StorageCostPerGBMonth float64 `toml:"storage_cost_per_gb_month" env:"STORAGE_COST_PER_GB_MONTH" validate:"gt=0"`
}

// ScheduleConfig configures `bckt schedule`.
type ScheduleConfig struct {
	Spec string `toml:"spec" env:"SPEC"`
}

// MetricsConfig configures the prometheus textfile written after each run.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path,omitempty" env:"TEXTFILE_PATH"`
}

// Duration is a time.Duration written as a Go duration string ("10m").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults applied by NewConfig and used to backfill sections missing from older files.
const (
	DefaultStorageCostPerGBMonth = 0.00099
	DefaultCacheTTL              = 10 * time.Minute
	DefaultArchiverTimeout       = 6 * time.Hour
	DefaultMultipartThresholdMB  = 4096
	DefaultScheduleSpec          = "@hourly"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "BCKT_"

// NewConfig creates a new Config with every path rooted at baseDir.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:        hostID,
		BaseDir:       baseDir,
		LogDir:        filepath.Join(baseDir, "log"),
		WorkingFolder: filepath.Join(baseDir, "archives"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Vault: VaultConfig{
			Type:               "filesystem",
			Name:               "local",
			FSVaultRoot:        filepath.Join(baseDir, "vault"),
			S3StorageClass:     "DEEP_ARCHIVE",
			MultipartThreshold: DefaultMultipartThresholdMB,
		},
		Cache: CacheConfig{
			Type: "file",
			Path: filepath.Join(baseDir, "cache.json"),
			TTL:  Duration{DefaultCacheTTL},
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "bckt.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "bckt.key"),
		},
		Archiver: ArchiverConfig{
			TarPath:       "tar",
			Timeout:       Duration{DefaultArchiverTimeout},
			OneFileSystem: true,
		},
		Pricing: PricingConfig{
			StorageCostPerGBMonth: DefaultStorageCostPerGBMonth,
		},
		Schedule: ScheduleConfig{
			Spec: DefaultScheduleSpec,
		},
	}
}

// applyDefaults fills zero values that older config files may not carry.
func (c *Config) applyDefaults() {
	if c.Encryption.Type == "" {
		c.Encryption.Type = "none"
	}
	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL = Duration{DefaultCacheTTL}
	}
	if c.Archiver.TarPath == "" {
		c.Archiver.TarPath = "tar"
	}
	if c.Archiver.Timeout.Duration == 0 {
		c.Archiver.Timeout = Duration{DefaultArchiverTimeout}
	}
	if c.Pricing.StorageCostPerGBMonth == 0 {
		c.Pricing.StorageCostPerGBMonth = DefaultStorageCostPerGBMonth
	}
	if c.Vault.MultipartThreshold == 0 {
		c.Vault.MultipartThreshold = DefaultMultipartThresholdMB
	}
	if c.Schedule.Spec == "" {
		c.Schedule.Spec = DefaultScheduleSpec
	}
}

// Validate checks field constraints. The first failing field is reported by its TOML name.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path without overrides.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file, applies the rc file and environment overrides,
// fills defaults and validates the result.
func Load(path, rcPath string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}

	if err := LoadRCFile(rcPath); err != nil {
		return nil, err
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRCFile loads KEY=VALUE lines from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadRCFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking rc file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading rc file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg fields from BCKT_* environment variables.
// Unset variables leave the file value in place.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment overrides: %w", err)
	}
	return nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
