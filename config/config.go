// Package config loads the run configuration from the environment, with an
// optional YAML overlay file for values the environment does not set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kamal-sdet/ekspods/agent"
)

// Defaults for every key except ROLE and TESTPLAN_SOURCE.
const (
	DefaultNamespace     = "jmeter"
	DefaultServiceName   = "jmeter-slaves"
	DefaultClusterDomain = "svc.cluster.local"
	DefaultControlPort   = 50000
	DefaultAgentPort     = 9090
	DefaultHTTPPort      = 8080
	DefaultResultsPath   = "/results/results.jtl"
	DefaultWorkDir       = "/testplans"
	DefaultShardsDir     = "/shards"
	DefaultTriggerPath   = "/tmp/run_test"
	DefaultEngineBin     = "jmeter"
	DefaultPollInterval  = time.Second
)

// Config is the full configuration of one node, coordinator or worker.
type Config struct {
	Role agent.Role `yaml:"-"`

	TestPlanSource string `yaml:"testplan_source"`
	MaxShards      int    `yaml:"max_shards"`

	// Opaque pass-through knobs for the load engine.
	Threads   int `yaml:"threads"`
	LoopCount int `yaml:"loop_count"`

	Namespace     string `yaml:"namespace"`
	ServiceName   string `yaml:"service_name"`
	ClusterDomain string `yaml:"cluster_domain"`
	ControlPort   int    `yaml:"control_port"`
	AgentPort     int    `yaml:"agent_port"`
	HTTPPort      int    `yaml:"http_port"`

	ResultsPath string `yaml:"results_path"`
	WorkDir     string `yaml:"work_dir"`
	ShardsDir   string `yaml:"shards_dir"`
	TriggerPath string `yaml:"trigger_path"`

	PollInterval time.Duration `yaml:"poll_interval"`
	EngineBin    string        `yaml:"engine_bin"`

	StrictOrdinal bool     `yaml:"strict_ordinal"`
	EtcdEndpoints []string `yaml:"etcd_endpoints"`
}

// Default returns the configuration with every defaulted key populated.
func Default() Config {
	return Config{
		MaxShards:     1,
		Threads:       1,
		LoopCount:     1,
		Namespace:     DefaultNamespace,
		ServiceName:   DefaultServiceName,
		ClusterDomain: DefaultClusterDomain,
		ControlPort:   DefaultControlPort,
		AgentPort:     DefaultAgentPort,
		HTTPPort:      DefaultHTTPPort,
		ResultsPath:   DefaultResultsPath,
		WorkDir:       DefaultWorkDir,
		ShardsDir:     DefaultShardsDir,
		TriggerPath:   DefaultTriggerPath,
		PollInterval:  DefaultPollInterval,
		EngineBin:     DefaultEngineBin,
	}
}

// FromEnv builds the configuration from environment variables. CONFIG_FILE,
// when set, is applied first so that explicit environment keys win.
func FromEnv() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	role, err := agent.ParseRole(os.Getenv("ROLE"))
	if err != nil {
		return cfg, err
	}
	cfg.Role = role

	if v := os.Getenv("TESTPLAN_SOURCE"); v != "" {
		cfg.TestPlanSource = v
	}
	if err := intVar(&cfg.MaxShards, "MAX_SHARDS"); err != nil {
		return cfg, err
	}
	if err := intVar(&cfg.Threads, "THREADS"); err != nil {
		return cfg, err
	}
	if err := intVar(&cfg.LoopCount, "LOOP_COUNT"); err != nil {
		return cfg, err
	}
	strVar(&cfg.Namespace, "NAMESPACE")
	strVar(&cfg.ServiceName, "SERVICE_NAME")
	strVar(&cfg.ClusterDomain, "CLUSTER_DOMAIN")
	if err := intVar(&cfg.ControlPort, "CONTROL_PORT"); err != nil {
		return cfg, err
	}
	if err := intVar(&cfg.AgentPort, "AGENT_PORT"); err != nil {
		return cfg, err
	}
	if err := intVar(&cfg.HTTPPort, "HTTP_PORT"); err != nil {
		return cfg, err
	}
	strVar(&cfg.ResultsPath, "RESULTS_PATH")
	strVar(&cfg.WorkDir, "WORK_DIR")
	strVar(&cfg.ShardsDir, "SHARDS_DIR")
	strVar(&cfg.TriggerPath, "TRIGGER_PATH")
	strVar(&cfg.EngineBin, "ENGINE_BIN")

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("STRICT_ORDINAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid STRICT_ORDINAL: %w", err)
		}
		cfg.StrictOrdinal = b
	}
	if v := os.Getenv("ETCD_ENDPOINTS"); v != "" {
		cfg.EtcdEndpoints = strings.Split(v, ",")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the constraints both roles share. Role-specific
// requirements (a coordinator needs a test plan source) are enforced by the
// agents themselves.
func (c *Config) Validate() error {
	if c.MaxShards < 1 {
		return fmt.Errorf("MAX_SHARDS must be >= 1, got %d", c.MaxShards)
	}
	if c.ControlPort < 1 || c.ControlPort > 65535 {
		return fmt.Errorf("CONTROL_PORT out of range: %d", c.ControlPort)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var overlay fileConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	overlay.apply(c)
	return nil
}

// fileConfig mirrors Config with pointer fields so an absent key is
// distinguishable from a zero value.
type fileConfig struct {
	TestPlanSource *string  `yaml:"testplan_source"`
	MaxShards      *int     `yaml:"max_shards"`
	Threads        *int     `yaml:"threads"`
	LoopCount      *int     `yaml:"loop_count"`
	Namespace      *string  `yaml:"namespace"`
	ServiceName    *string  `yaml:"service_name"`
	ClusterDomain  *string  `yaml:"cluster_domain"`
	ControlPort    *int     `yaml:"control_port"`
	AgentPort      *int     `yaml:"agent_port"`
	HTTPPort       *int     `yaml:"http_port"`
	ResultsPath    *string  `yaml:"results_path"`
	WorkDir        *string  `yaml:"work_dir"`
	ShardsDir      *string  `yaml:"shards_dir"`
	TriggerPath    *string  `yaml:"trigger_path"`
	PollInterval   *string  `yaml:"poll_interval"`
	EngineBin      *string  `yaml:"engine_bin"`
	StrictOrdinal  *bool    `yaml:"strict_ordinal"`
	EtcdEndpoints  []string `yaml:"etcd_endpoints"`
}

func (f *fileConfig) apply(c *Config) {
	if f.TestPlanSource != nil {
		c.TestPlanSource = *f.TestPlanSource
	}
	if f.MaxShards != nil {
		c.MaxShards = *f.MaxShards
	}
	if f.Threads != nil {
		c.Threads = *f.Threads
	}
	if f.LoopCount != nil {
		c.LoopCount = *f.LoopCount
	}
	if f.Namespace != nil {
		c.Namespace = *f.Namespace
	}
	if f.ServiceName != nil {
		c.ServiceName = *f.ServiceName
	}
	if f.ClusterDomain != nil {
		c.ClusterDomain = *f.ClusterDomain
	}
	if f.ControlPort != nil {
		c.ControlPort = *f.ControlPort
	}
	if f.AgentPort != nil {
		c.AgentPort = *f.AgentPort
	}
	if f.HTTPPort != nil {
		c.HTTPPort = *f.HTTPPort
	}
	if f.ResultsPath != nil {
		c.ResultsPath = *f.ResultsPath
	}
	if f.WorkDir != nil {
		c.WorkDir = *f.WorkDir
	}
	if f.ShardsDir != nil {
		c.ShardsDir = *f.ShardsDir
	}
	if f.TriggerPath != nil {
		c.TriggerPath = *f.TriggerPath
	}
	if f.PollInterval != nil {
		if d, err := time.ParseDuration(*f.PollInterval); err == nil {
			c.PollInterval = d
		}
	}
	if f.EngineBin != nil {
		c.EngineBin = *f.EngineBin
	}
	if f.StrictOrdinal != nil {
		c.StrictOrdinal = *f.StrictOrdinal
	}
	if len(f.EtcdEndpoints) > 0 {
		c.EtcdEndpoints = f.EtcdEndpoints
	}
}

func strVar(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intVar(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}
