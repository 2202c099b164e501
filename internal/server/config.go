package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/openjobspec/ojs-monitor/internal/remote"
)

// InstanceConfig names one store instance.
type InstanceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type instancesFile struct {
	Instances []InstanceConfig `yaml:"instances"`
}

// Config holds server configuration from environment variables.
type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Instances []InstanceConfig

	SSHConfigPaths []string
	SSHTimeout     time.Duration
	KnownHosts     string
	SSHInsecure    bool
	Signal         syscall.Signal

	KafkaBrokers  []string
	EventsEnabled bool
	EventsTopic   string

	StatsSchedule  string
	HealthInterval time.Duration
}

// LoadConfig reads configuration from environment variables with defaults.
func LoadConfig() (Config, error) {
	home, _ := os.UserHomeDir()

	sshPaths := remote.DefaultSSHConfigPaths()
	if sshConfig := getEnv("OJS_MONITOR_SSH_CONFIG", ""); sshConfig != "" {
		sshPaths = splitList(sshConfig)
	}

	sig, err := ParseSignal(getEnv("OJS_MONITOR_SIGNAL", "INT"))
	if err != nil {
		return Config{}, err
	}

	instances, err := LoadInstances(getEnv("REDIS_URL", "redis://localhost:6379"), getEnv("OJS_MONITOR_INSTANCES_FILE", ""))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:            getEnv("OJS_MONITOR_PORT", "8899"),
		ReadTimeout:     getEnvDuration("OJS_MONITOR_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvDuration("OJS_MONITOR_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:     getEnvDuration("OJS_MONITOR_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout: getEnvDuration("OJS_MONITOR_SHUTDOWN_TIMEOUT", 30*time.Second),

		Instances: instances,

		SSHConfigPaths: sshPaths,
		SSHTimeout:     getEnvDuration("OJS_MONITOR_SSH_TIMEOUT", 10*time.Second),
		KnownHosts:     getEnv("OJS_MONITOR_KNOWN_HOSTS", filepath.Join(home, ".ssh", "known_hosts")),
		SSHInsecure:    getEnvBool("OJS_MONITOR_SSH_INSECURE", false),
		Signal:         sig,

		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		EventsEnabled: getEnvBool("OJS_MONITOR_EVENTS_ENABLED", false),
		EventsTopic:   getEnv("OJS_MONITOR_EVENTS_TOPIC", "ojs.monitor.events"),

		StatsSchedule:  getEnv("OJS_MONITOR_STATS_SCHEDULE", "@every 15s"),
		HealthInterval: getEnvDuration("OJS_MONITOR_HEALTH_INTERVAL", 30*time.Second),
	}, nil
}

// LoadInstances builds the instance list from a comma separated URL list
// followed by the instances of an optional YAML file. Instances without a
// name are named after their address and database.
func LoadInstances(urls, file string) ([]InstanceConfig, error) {
	var instances []InstanceConfig
	for _, u := range splitList(urls) {
		instances = append(instances, InstanceConfig{URL: u})
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading instances file: %w", err)
		}
		var parsed instancesFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parsing instances file %s: %w", file, err)
		}
		instances = append(instances, parsed.Instances...)
	}

	if len(instances) == 0 {
		return nil, fmt.Errorf("no store instances configured")
	}
	for i := range instances {
		if instances[i].URL == "" {
			return nil, fmt.Errorf("instance %d (%s) has no url", i, instances[i].Name)
		}
		if instances[i].Name != "" {
			continue
		}
		opts, err := redis.ParseURL(instances[i].URL)
		if err != nil {
			return nil, fmt.Errorf("instance %d: invalid redis url: %w", i, err)
		}
		instances[i].Name = fmt.Sprintf("%s/%d", opts.Addr, opts.DB)
	}
	return instances, nil
}

var signalNames = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"TERM": syscall.SIGTERM,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
}

// ParseSignal accepts a signal name with or without the SIG prefix, or a
// signal number.
func ParseSignal(s string) (syscall.Signal, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SIG")
	if sig, ok := signalNames[name]; ok {
		return sig, nil
	}
	if n, err := strconv.Atoi(name); err == nil && n > 0 && n < 65 {
		return syscall.Signal(n), nil
	}
	return 0, fmt.Errorf("unknown signal %q", s)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("10s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
