// Package config loads and validates the indexer's YAML
// configuration: index directory, worker parallelism, the schema
// version tag mixed into every file hash, ignore globs, and the
// vector, logging and metrics settings. Defaults are usable as is;
// a config file layers on top of them.
package config
