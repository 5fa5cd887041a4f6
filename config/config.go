package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration settings for the application.
type Config struct {
	// Server settings
	ListenAddress string
	ListenPort    string

	// Store settings
	StoreFilePath string
	SaveInterval  time.Duration
	EnableBackup  bool

	// Authentication settings
	JwtSecret     string // The actual secret key
	JwtSecretFile string // Path to the file containing the secret
	TokenLifetime time.Duration
	BcryptCost    int

	// BootstrapAdmins lists emails promoted to SUPER_ADMIN on session
	// sync and registration. Replaces any inline email comparison in
	// business logic.
	BootstrapAdmins []string

	// DispatchDelay is the fixed artificial delay applied to simulated
	// external effects (emails, admin notifications).
	DispatchDelay time.Duration
}

const (
	defaultAddress       = "0.0.0.0"
	defaultPort          = "8080"
	defaultStoreFile     = "./agripress.json" // Relative to working dir
	defaultSaveInterval  = 3 * time.Second
	defaultEnableBackup  = true
	defaultJwtSecretFile = ""
	defaultJwtKeyFile    = "./agripress.key" // Default file if we generate a key
	defaultTokenLifetime = 24 * time.Hour
	defaultBcryptCost    = 12
	defaultDispatchDelay = 1500 * time.Millisecond
)

// LoadConfig loads configuration from defaults, environment variables, and
// command-line flags. Flags take precedence over environment variables,
// which take precedence over defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(flag.CommandLine, os.Args[1:])
}

// loadConfig is the testable core of LoadConfig, parameterized on the
// flag set and argument list.
func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	fs.StringVar(&cfg.ListenAddress, "address", getEnv("AGRIPRESS_LISTEN_ADDRESS", defaultAddress), "Server listen address (Env: AGRIPRESS_LISTEN_ADDRESS)")
	fs.StringVar(&cfg.ListenPort, "port", getEnv("AGRIPRESS_LISTEN_PORT", defaultPort), "Server listen port (Env: AGRIPRESS_LISTEN_PORT)")
	fs.StringVar(&cfg.StoreFilePath, "store-file", getEnv("AGRIPRESS_STORE_FILE_PATH", defaultStoreFile), "Path to the JSON store file (Env: AGRIPRESS_STORE_FILE_PATH)")
	saveIntervalStr := fs.String("save-interval", getEnv("AGRIPRESS_SAVE_INTERVAL", defaultSaveInterval.String()), "Debounce interval for saving the store (e.g. 5s, 100ms) (Env: AGRIPRESS_SAVE_INTERVAL)")
	fs.BoolVar(&cfg.EnableBackup, "enable-backup", getEnvBool("AGRIPRESS_ENABLE_BACKUP", defaultEnableBackup), "Keep a .bak copy of the store file before saving (Env: AGRIPRESS_ENABLE_BACKUP)")
	fs.StringVar(&cfg.JwtSecretFile, "jwt-secret-file", getEnv("AGRIPRESS_JWT_SECRET_FILE", defaultJwtSecretFile), "Path to file containing the JWT secret key (Env: AGRIPRESS_JWT_SECRET_FILE)")
	bootstrapAdminsStr := fs.String("bootstrap-admins", getEnv("AGRIPRESS_BOOTSTRAP_ADMINS", ""), "Comma-separated emails granted SUPER_ADMIN at startup (Env: AGRIPRESS_BOOTSTRAP_ADMINS)")
	dispatchDelayStr := fs.String("dispatch-delay", getEnv("AGRIPRESS_DISPATCH_DELAY", defaultDispatchDelay.String()), "Artificial delay for simulated email/notification dispatch (Env: AGRIPRESS_DISPATCH_DELAY)")

	// Non-configurable defaults
	cfg.TokenLifetime = defaultTokenLifetime
	cfg.BcryptCost = defaultBcryptCost

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	cfg.SaveInterval, err = time.ParseDuration(*saveIntervalStr)
	if err != nil {
		log.Printf("WARN: Invalid save-interval duration '%s'. Using default %s. Error: %v", *saveIntervalStr, defaultSaveInterval, err)
		cfg.SaveInterval = defaultSaveInterval
	}

	cfg.DispatchDelay, err = time.ParseDuration(*dispatchDelayStr)
	if err != nil {
		log.Printf("WARN: Invalid dispatch-delay duration '%s'. Using default %s. Error: %v", *dispatchDelayStr, defaultDispatchDelay, err)
		cfg.DispatchDelay = defaultDispatchDelay
	}

	cfg.BootstrapAdmins = parseAdminList(*bootstrapAdminsStr)

	// --- JWT Secret Handling ---
	// Priority: File (CLI/Env) > Env Var > Default Key File > Generate
	var secretSource string

	// 1. Explicit file path (from flag or AGRIPRESS_JWT_SECRET_FILE env)
	if cfg.JwtSecretFile != "" {
		secretBytes, err := os.ReadFile(cfg.JwtSecretFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				log.Printf("INFO: Loaded JWT secret from specified file: %s", cfg.JwtSecretFile)
				secretSource = fmt.Sprintf("File (%s)", cfg.JwtSecretFile)
			} else {
				log.Printf("WARN: Specified JWT secret file '%s' is empty or contains only whitespace. Ignoring.", cfg.JwtSecretFile)
			}
		} else {
			log.Printf("WARN: Failed to read specified JWT secret file '%s': %v. Checking other sources.", cfg.JwtSecretFile, err)
		}
	}

	// 2. Environment variable (AGRIPRESS_JWT_SECRET) if not loaded from file
	if cfg.JwtSecret == "" {
		cfg.JwtSecret = strings.TrimSpace(getEnv("AGRIPRESS_JWT_SECRET", ""))
		if cfg.JwtSecret != "" {
			log.Printf("INFO: Loaded JWT secret from AGRIPRESS_JWT_SECRET environment variable.")
			secretSource = "Environment Variable (AGRIPRESS_JWT_SECRET)"
		}
	}

	// 3. Default key file if still no secret
	if cfg.JwtSecret == "" {
		secretBytes, err := os.ReadFile(defaultJwtKeyFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				log.Printf("INFO: Loaded JWT secret from default key file: %s", defaultJwtKeyFile)
				secretSource = fmt.Sprintf("Default Key File (%s)", defaultJwtKeyFile)
			} else {
				log.Printf("WARN: Default JWT key file '%s' is empty or contains only whitespace. Will attempt generation.", defaultJwtKeyFile)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("WARN: Failed to read default JWT key file '%s': %v. Will attempt generation.", defaultJwtKeyFile, err)
		}
	}

	// 4. Generate secret if still not found and save to the default file
	if cfg.JwtSecret == "" {
		log.Printf("INFO: JWT secret not found via file, environment variable, or default key file. Generating a new secret...")
		newSecret, err := generateRandomKey(32) // 256-bit key
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JwtSecret = newSecret

		if err := os.WriteFile(defaultJwtKeyFile, []byte(newSecret), 0600); err != nil {
			log.Printf("WARN: Failed to save generated JWT secret to '%s': %v. The server will use the generated key for this session only.", defaultJwtKeyFile, err)
			secretSource = "Generated (In Memory)"
		} else {
			log.Printf("INFO: Successfully generated and saved new JWT secret to: %s", defaultJwtKeyFile)
			secretSource = fmt.Sprintf("Generated & Saved (%s)", defaultJwtKeyFile)
		}
	}

	if cfg.JwtSecret == "" {
		return nil, fmt.Errorf("failed to obtain a valid JWT secret after checking all sources and attempting generation")
	}

	// --- Store Path Validation ---
	absStorePath, err := filepath.Abs(cfg.StoreFilePath)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for store-file '%s': %w", cfg.StoreFilePath, err)
	}
	cfg.StoreFilePath = absStorePath

	fileInfo, err := os.Stat(cfg.StoreFilePath)
	if err == nil && fileInfo.IsDir() {
		return nil, fmt.Errorf("store path '%s' points to a directory, not a file", cfg.StoreFilePath)
	}
	// os.IsNotExist is fine here: the store is created on first run.

	logConfiguration(cfg, secretSource)

	return cfg, nil
}

// IsBootstrapAdmin reports whether email is in the configured bootstrap
// admin list (case-insensitive).
func (c *Config) IsBootstrapAdmin(email string) bool {
	for _, admin := range c.BootstrapAdmins {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// parseAdminList splits a comma-separated email list, trimming blanks.
func parseAdminList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	admins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			admins = append(admins, p)
		}
	}
	return admins
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// Recognizes "true", "1", "yes" (case-insensitive) as true.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
		log.Printf("WARN: Invalid boolean value for environment variable %s: '%s'. Using default: %t", key, value, fallback)
	}
	return fallback
}

// logConfiguration prints the loaded configuration settings.
func logConfiguration(cfg *Config, secretSource string) {
	log.Println("--- Configuration ---")
	log.Printf("Server Address: %s", cfg.ListenAddress)
	log.Printf("Server Port: %s", cfg.ListenPort)
	log.Printf("Store File: %s", cfg.StoreFilePath)
	log.Printf("Store Save Interval: %s", cfg.SaveInterval)
	log.Printf("Store Backup Enabled: %t", cfg.EnableBackup)
	log.Printf("JWT Secret Source: %s", secretSource)
	log.Printf("JWT Token Lifetime: %s", cfg.TokenLifetime)
	log.Printf("Bcrypt Cost: %d", cfg.BcryptCost)
	log.Printf("Bootstrap Admins: %d configured", len(cfg.BootstrapAdmins))
	log.Printf("Simulated Dispatch Delay: %s", cfg.DispatchDelay)
	log.Println("---------------------")
}

// generateRandomKey generates a cryptographically secure random key of the
// specified byte length and returns it as a hex-encoded string.
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
