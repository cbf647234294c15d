// Package config handles loading and validating Taller Core configuration.
//
// This package manages:
//   - Loading an optional dotenv file into the process environment
//   - Loading configuration from YAML files
//   - Overriding with TALLER_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - The JWT signing secret has no default and must be at least 32 characters.
//     Startup fails without it.
//   - Sensitive values (passwords, tokens, DSNs) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	if err := config.LoadEnvFile(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
