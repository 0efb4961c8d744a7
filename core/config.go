// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the database configuration contract consumed by the
// connection pool: per-connection host/port/database/auth settings, the
// default connection name, and construction of MongoDB connection URIs with
// optional credentials taken from the environment.
package core

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AuthConfig holds optional authentication parameters appended to the
// connection URI as query parameters.
type AuthConfig struct {
	Source    string `yaml:"source"`
	Mechanism string `yaml:"mechanism"`
}

// ConnectionDetails describes how to reach a single MongoDB deployment.
type ConnectionDetails struct {
	Host     string      `yaml:"host"`
	Port     int         `yaml:"port"`
	Database string      `yaml:"database"`
	Auth     *AuthConfig `yaml:"auth"`
}

// ConnectionConfig is the configuration entry for one named connection.
//
// Prefix, when set, is prepended to every collection name targeted through
// this connection unless a query explicitly suppresses it.
type ConnectionConfig struct {
	Connection ConnectionDetails `yaml:"connection"`
	Prefix     string            `yaml:"prefix"`
}

// Config is the root database configuration.
//
// Connection names the default connection; Connections maps each logical
// name to its settings.
//
// Example YAML:
//
//	connection: primary
//	connections:
//	  primary:
//	    connection:
//	      host: localhost
//	      port: 27017
//	      database: app
//	    prefix: app_
type Config struct {
	Connection  string                       `yaml:"connection"`
	Connections map[string]*ConnectionConfig `yaml:"connections"`
}

// ParseConfig decodes a YAML document into a Config.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("mango: parse config: %w", err)
	}
	if cfg.Connections == nil {
		cfg.Connections = map[string]*ConnectionConfig{}
	}
	return cfg, nil
}

// LoadConfig reads and decodes a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mango: load config: %w", err)
	}
	return ParseConfig(data)
}

// Credentials returns the optional user/password pair merged into generated
// connection URIs. They are read from the DB_USER and DB_PASSWORD
// environment variables.
func Credentials() (user, password string) {
	return os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")
}

// URI builds the connection string for these details in the form
//
//	mongodb://[user[:password]@]host:port/database[?authSource=…&authMechanism=…]
//
// Credentials are included only when a user is set; a password alone is
// ignored. Both are URL-escaped.
func (d *ConnectionDetails) URI(user, password string) string {
	var sb strings.Builder
	sb.WriteString("mongodb://")

	if user != "" {
		sb.WriteString(url.QueryEscape(user))
		if password != "" {
			sb.WriteString(":")
			sb.WriteString(url.QueryEscape(password))
		}
		sb.WriteString("@")
	}

	fmt.Fprintf(&sb, "%s:%d/%s", d.Host, d.Port, d.Database)

	if d.Auth != nil {
		params := url.Values{}
		if d.Auth.Source != "" {
			params.Set("authSource", d.Auth.Source)
		}
		if d.Auth.Mechanism != "" {
			params.Set("authMechanism", d.Auth.Mechanism)
		}
		if len(params) > 0 {
			sb.WriteString("?")
			sb.WriteString(params.Encode())
		}
	}
	return sb.String()
}
