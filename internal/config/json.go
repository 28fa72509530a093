package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/recallhq/recall/internal/flagx"
	"github.com/recallhq/recall/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds.
type JsonConfig struct {
	LocalDSN            string         `json:"local_dsn"`
	RemoteDSN           string         `json:"remote_dsn"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	TransitionWait      timex.Duration `json:"transition_wait"`
	CallerTokenSecret   string         `json:"caller_token_secret"`
	S3Region            string         `json:"s3_region"`
	S3Endpoint          string         `json:"s3_endpoint"`
	S3Bucket            string         `json:"s3_bucket"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Missing flag means no JSON is loaded. Read or unmarshal
// errors panic; config is resolved once at startup.
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

	if jc.LocalDSN != "" {
		cfg.LocalDSN = jc.LocalDSN
	}
	cfg.RemoteDSN = jc.RemoteDSN
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.TransitionWait.Duration != 0 {
		cfg.TransitionWait = time.Duration(jc.TransitionWait.Duration)
	}
	cfg.CallerTokenSecret = jc.CallerTokenSecret
	cfg.S3Region = jc.S3Region
	cfg.S3Endpoint = jc.S3Endpoint
	cfg.S3Bucket = jc.S3Bucket
	cfg.S3AccessKey = jc.S3AccessKey
	cfg.S3SecretKey = jc.S3SecretKey
}
