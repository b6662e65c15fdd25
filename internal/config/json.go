package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldcapture/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// are integer seconds (probe interval) and milliseconds (upload base delay)
// so the file stays editable by hand.
type JsonConfig struct {
	SubmissionURL     *string `json:"submission_url"`
	ProbeIntervalSec  *int    `json:"probe_interval_sec"`
	DatabasePath      *string `json:"database_path"`
	UploadTries       *int    `json:"upload_tries"`
	UploadBaseDelayMs *int    `json:"upload_base_delay_ms"`
	DeadLetterAfter   *int    `json:"dead_letter_after"`
	S3AccessKey       *string `json:"s3_access_key"`
	S3SecretKey       *string `json:"s3_secret_key"`
	S3Bucket          *string `json:"s3_bucket"`
	S3Region          *string `json:"s3_region"`
	S3Endpoint        *string `json:"s3_endpoint"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags; when absent, nothing is loaded.
// Only fields present in the file override the current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.SubmissionURL != nil {
		cfg.SubmissionURL = *jc.SubmissionURL
	}
	if jc.ProbeIntervalSec != nil {
		cfg.ProbeInterval = time.Duration(*jc.ProbeIntervalSec) * time.Second
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.UploadTries != nil {
		cfg.UploadTries = *jc.UploadTries
	}
	if jc.UploadBaseDelayMs != nil {
		cfg.UploadBaseDelay = time.Duration(*jc.UploadBaseDelayMs) * time.Millisecond
	}
	if jc.DeadLetterAfter != nil {
		cfg.DeadLetterAfter = *jc.DeadLetterAfter
	}
	if jc.S3AccessKey != nil {
		cfg.S3AccessKey = *jc.S3AccessKey
	}
	if jc.S3SecretKey != nil {
		cfg.S3SecretKey = *jc.S3SecretKey
	}
	if jc.S3Bucket != nil {
		cfg.S3Bucket = *jc.S3Bucket
	}
	if jc.S3Region != nil {
		cfg.S3Region = *jc.S3Region
	}
	if jc.S3Endpoint != nil {
		cfg.S3Endpoint = *jc.S3Endpoint
	}
}
