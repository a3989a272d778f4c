// Package config provides configuration management for Warden.
//
// This package loads the engine settings and the policy table from a YAML
// file, applies environment variable overrides and defaults, and validates
// the result. The policy table is read once at start-up; the Watcher only
// re-validates on change (used by "warden validate --watch") and never
// mutates a running engine.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("warden.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("warden.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention WARDEN_SECTION_FIELD:
//
//   - WARDEN_TRUST_ORIGINS overrides trust.origins (comma separated)
//   - WARDEN_RATE_LIMIT_THRESHOLD overrides rate_limit.threshold
//   - WARDEN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Overrides are applied before defaults, so policies that inherit the
// top-level trust or rate_limit settings see the overridden values.
//
// # Validation
//
// All field errors are collected into a single ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - operations[0].policies[0].kind: must be one of: rate_limit, validate, trust_gate (got "quota")
//	  - evidence.retention.prune_schedule: invalid cron expression: ...
//
// # Example Configuration
//
//	trust:
//	  origins:
//	    - "https://gandi-main.ccw.site/"
//
//	operations:
//	  - owner: cloud
//	    operation: setVariable
//	    policies:
//	      - kind: rate_limit
//	        channel: cloud
//	  - owner: leaderboard
//	    operation: submitScore
//	    policies:
//	      - kind: validate
//	        arg: 0
//	        constraint: {type: number, min: 0, max: 1000000}
//	  - owner: runtime
//	    operation: loadExtension
//	    result: false
//	    policies:
//	      - kind: trust_gate
//	        arg: 0
package config
