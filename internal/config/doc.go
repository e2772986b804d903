// Package config loads and validates loamd's configuration from LOAM_
// prefixed environment variables and an optional config file: server
// settings, the backend and queue-persistence connections, consumer loop
// tuning, and the Gemini model settings.
package config
