// Package config handles configuration for the fieldcapture agent,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the capture agent.
//
// Fields:
//   - SubmissionURL: endpoint receiving multipart submissions.
//   - ProbeInterval: how often the agent checks remote reachability.
//   - DatabasePath: path of the local SQLite database.
//   - UploadTries / UploadBaseDelay: per-upload retry budget.
//   - DeadLetterAfter: missing-payload observations before dead-lettering.
//   - S3AccessKey / S3SecretKey / S3Bucket / S3Region / S3Endpoint: object
//     storage settings for queued attachment uploads.
type Config struct {
	SubmissionURL   string
	ProbeInterval   time.Duration
	DatabasePath    string
	UploadTries     int
	UploadBaseDelay time.Duration
	DeadLetterAfter int
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.SubmissionURL = "http://127.0.0.1:8080/api/submissions"
	c.ProbeInterval = 3 * time.Second
	c.DatabasePath = "fieldcapture.db"
	c.UploadTries = 3
	c.UploadBaseDelay = 400 * time.Millisecond
	c.DeadLetterAfter = 3
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "captures"
	c.S3Region = "us-east-1"
	c.S3Endpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
