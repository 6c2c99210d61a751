// Package config defines configuration structures for the inatdl CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (INATDL_ prefix)
//   - YAML configuration file
//
// # Structure
//
//	type Config struct {
//	    Input     string
//	    Dest      string
//	    Timeout   time.Duration
//	    MinSize   int
//	    Rate      float64
//	    UserAgent string
//	    Progress  bool
//	    Retry     RetryConfig
//	}
//
//	type RetryConfig struct {
//	    Attempts int
//	    Delay    time.Duration
//	}
package config
