package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// EnvFileName is the dotenv file in the user's home directory that holds
// credentials and endpoints for all stages.
const EnvFileName = ".mpt-clone-agreement"

var validate = validator.New()

type Config struct {
	APIURL   string `validate:"required,url"`
	OpsToken string `validate:"required"`

	// Required by every stage except audit, which writes with the
	// operations token only.
	VendorToken string

	// Secondary sync API, required only with -sync.
	CSPTunnelURL string
	CSPToken     string

	// Snapshot archive, required only with -archive.
	ArchiveEndpoint  string
	ArchiveBucket    string
	ArchiveAccessKey string
	ArchiveSecretKey string

	OutputDir string
	LogLevel  string
}

// Load reads the dotenv file (if present) and the environment, then validates
// the variables every stage needs. Stage-specific requirements are checked
// separately with RequireCSP and RequireArchive.
func Load() (*Config, error) {
	if home, err := os.UserHomeDir(); err == nil {
		// A missing env file is fine; plain environment variables still work.
		_ = godotenv.Load(filepath.Join(home, EnvFileName))
	}

	cfg := &Config{
		APIURL:           getEnv("API_URL", ""),
		OpsToken:         getEnv("OPS_TOKEN", ""),
		VendorToken:      getEnv("VENDOR_TOKEN", ""),
		CSPTunnelURL:     getEnv("CSP_URL_TUNNEL", ""),
		CSPToken:         getEnv("CSP_TOKEN", ""),
		ArchiveEndpoint:  getEnv("ARCHIVE_S3_ENDPOINT", ""),
		ArchiveBucket:    getEnv("ARCHIVE_S3_BUCKET", ""),
		ArchiveAccessKey: getEnv("ARCHIVE_S3_ACCESS_KEY", ""),
		ArchiveSecretKey: getEnv("ARCHIVE_S3_SECRET_KEY", ""),
		OutputDir:        getEnv("OUTPUT_DIR", "output"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("missing or invalid environment (set API_URL and OPS_TOKEN in ~/%s): %w", EnvFileName, err)
	}

	return cfg, nil
}

// RequireVendor verifies the vendor credential is present.
func (c *Config) RequireVendor() error {
	if c.VendorToken == "" {
		return fmt.Errorf("VENDOR_TOKEN is required for this stage; set it in ~/%s", EnvFileName)
	}
	return nil
}

// RequireCSP verifies the secondary sync credentials are present.
func (c *Config) RequireCSP() error {
	if c.CSPTunnelURL == "" || c.CSPToken == "" {
		return fmt.Errorf("CSP_URL_TUNNEL and CSP_TOKEN are required for platform sync; set them in ~/%s", EnvFileName)
	}
	return nil
}

// RequireArchive verifies the snapshot archive settings are present.
func (c *Config) RequireArchive() error {
	if c.ArchiveEndpoint == "" || c.ArchiveBucket == "" || c.ArchiveAccessKey == "" || c.ArchiveSecretKey == "" {
		return fmt.Errorf("ARCHIVE_S3_ENDPOINT, ARCHIVE_S3_BUCKET, ARCHIVE_S3_ACCESS_KEY and ARCHIVE_S3_SECRET_KEY are required for -archive; set them in ~/%s", EnvFileName)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
