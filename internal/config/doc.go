// Package config provides the configuration of linkcrawler: crawl limits,
// request settings, report preferences, and per-site overrides loaded from
// a YAML file.
package config
