// Package config loads and validates nestwire configuration.
//
// Values are resolved in three layers, later layers winning:
//  1. Built-in defaults (defaultConfig)
//  2. The YAML file passed to Load
//  3. NESTWIRE_* environment variables, optionally seeded from a .env file
//
// Broker credentials and the InfluxDB token belong in the environment, not
// the YAML file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Topology.Scope)
package config
