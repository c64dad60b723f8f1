// Package envloader provides a small utility for loading environment
// variables straight into the fields of a Go struct, driven by `env`
// tags with optional `envDefault` fallbacks.
//
// Overview:
// envloader simplifies configuration handling in Go applications. It uses
// reflection to inspect the configuration struct and automatically maps
// environment variables onto typed fields. Basic types are supported
// (string, int, uint, bool, float, time.Duration) along with nested
// structs, including pointers to structs.
//
// Main features:
// - Tag mapping: the `env:"VAR_NAME"` tag names the variable to read.
// - Defaults: the `envDefault:"value"` tag applies when the variable is unset.
// - Nesting: nested structs and pointers to structs are walked recursively.
// - Typed errors: invalid configs and conversion failures return dedicated error types.
//
// Usage:
//
// Basic example:
//
//	// Assuming the environment variable DB_HOST is set to "localhost"
//	type Config struct {
//	    DBHost string `env:"DB_HOST"`
//	    DBPort int    `env:"DB_PORT" envDefault:"5432"`
//	}
//
//	var cfg Config
//	if err := envloader.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Host: %s, Port: %d\n", cfg.DBHost, cfg.DBPort) // Output: Host: localhost, Port: 5432
//
// Nested struct example:
//
//	type ServerConfig struct {
//	    Host string `env:"SERVER_HOST"`
//	}
//	type AppConfig struct {
//	    Server ServerConfig
//	}
//
//	// Assuming SERVER_HOST="0.0.0.0" is set
//	var appCfg AppConfig
//	if err := envloader.Load(&appCfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Configuration:
// Load must receive a pointer to the configuration struct. Environment
// variables have to be set before Load runs.
package envloader
