// Package config loads worker configuration from an HCL file.
package config

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/pkg/errors"

	"github.com/smi-extract/extract-worker/extractworker"
	"github.com/smi-extract/extract-worker/fsx"
)

// Config is the on-disk shape of a worker's HCL configuration file.
type Config struct {
	FileSystemRoot string `hcl:"file_system_root"`
	ExtractionRoot string `hcl:"extraction_root"`
	PoolRoot       string `hcl:"pool_root"`

	RoutingKeySuccess  string `hcl:"routing_key_success"`
	RoutingKeyFailure  string `hcl:"routing_key_failure"`
	NoVerifyRoutingKey string `hcl:"no_verify_routing_key"`

	FailIfSourceWriteable bool `hcl:"fail_if_source_writeable"`

	// ExternalToolPath, when set, enables the XA external-tool backend.
	ExternalToolPath      string `hcl:"external_tool_path"`
	ExternalToolTimeoutMS int    `hcl:"external_tool_timeout_ms"`

	AMQP AMQPConfig `hcl:"amqp"`
}

// AMQPConfig describes how to reach the status/ack broker.
type AMQPConfig struct {
	URL            string `hcl:"url"`
	Exchange       string `hcl:"exchange"`
	Queue          string `hcl:"queue"`
	ConsumerTag    string `hcl:"consumer_tag"`
	PrefetchCount  int    `hcl:"prefetch_count"`
	RoutingKeyBind string `hcl:"routing_key_bind"`
}

// Load reads path, requires it be private (mode bits beyond 0700
// unset), and decodes it as HCL.
func Load(path string) (*Config, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat config file failed")
	}
	if int(fi.Mode())&077 != 0 {
		return nil, errors.New("config file permissions are insecure")
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file failed")
	}

	cfg := &Config{
		ExternalToolTimeoutMS: int(60 * time.Second / time.Millisecond),
	}
	if err := hcl.Decode(cfg, string(data)); err != nil {
		return nil, errors.Wrap(err, "decode config file failed")
	}
	return cfg, nil
}

// Display formats cfg for startup logging.
func Display(cfg *Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config failed").Error()
	}
	var out bytes.Buffer
	json.Indent(&out, data, "", "\t")
	return out.String()
}

// ExternalToolTimeout returns the configured timeout as a Duration.
func (c *Config) ExternalToolTimeout() time.Duration {
	return time.Duration(c.ExternalToolTimeoutMS) * time.Millisecond
}

// WorkerConfig projects the HCL config down to the fields
// extractworker.Config needs.
func (c *Config) WorkerConfig() extractworker.Config {
	return extractworker.Config{
		FileSystemRoot:        c.FileSystemRoot,
		ExtractionRoot:        c.ExtractionRoot,
		PoolRoot:              c.PoolRoot,
		RoutingKeySuccess:     c.RoutingKeySuccess,
		RoutingKeyFailure:     c.RoutingKeyFailure,
		NoVerifyRoutingKey:    c.NoVerifyRoutingKey,
		FailIfSourceWriteable: c.FailIfSourceWriteable,
	}.Normalize()
}

// Validate checks that the configured roots exist before a worker
// starts consuming.
func (c *Config) Validate(fs fsx.FileSystem) error {
	return extractworker.ValidateRoots(fs, c.WorkerConfig())
}
