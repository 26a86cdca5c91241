package conf

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v2"
)

// Config holds every tunable named in the ambient configuration surface:
// per-direction buffer sizing, idle-expiry timing, the keyword
// dictionary path consumed by the downstream sink, and the metrics
// listener address.
type Config struct {
	BufferCapacityBytes int    `yaml:"buffer_capacity_bytes"`
	FlowIdleTimeoutMS   int64  `yaml:"flow_idle_timeout_ms"`
	BucketIntervalMS    int64  `yaml:"bucket_interval_ms"`
	KeywordDictionary   string `yaml:"keyword_dictionary_path"`
	MetricsListenAddr   string `yaml:"metrics_listen_addr"`
}

// defaults: 10 MiB per-direction buffers, a 120s idle timeout, a 1s
// bucket width, and the Prometheus listener on :9469.
func defaults() Config {
	return Config{
		BufferCapacityBytes: 10 * 1024 * 1024,
		FlowIdleTimeoutMS:   120_000,
		BucketIntervalMS:    1_000,
		MetricsListenAddr:   ":9469",
	}
}

// LoadConfig searches a fixed list of conventional paths for the first
// readable YAML file and unmarshals it over the defaults, so a config
// file only needs to name the fields it overrides.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	configPaths := []string{
		"/etc/imapflow/imapflow.yaml",
		"./config/imapflow.yaml",
		"./imapflow.yaml",
		"config/imapflow.yaml",
	}

	var data []byte
	var err error
	for _, path := range configPaths {
		data, err = os.ReadFile(filepath.Clean(path))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, eris.Wrap(err, "conf: no readable config file found")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrap(err, "conf: failed to parse config file")
	}

	return &cfg, nil
}
