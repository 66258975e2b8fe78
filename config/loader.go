package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string         // Direct config file path (optional)
	EnvFile    string         // Direct env file path (optional)
	EnvPrefix  string         // Only env vars with this prefix are bound (prefix stripped)
	Defaults   map[string]any // Viper defaults, dotted keys
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix restricts environment binding to variables starting with
// prefix, e.g. AUDIO_TRANSCRIBER_ so that AUDIO_TRANSCRIBER_TRANSCRIPTION_MODEL
// sets transcription.model.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.ToUpper(prefix) }
}

// WithDefaults registers default values applied before the config file.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = defaults }
}

// LoadConfig loads configuration for a service into the provided cfg struct.
// Precedence, lowest first: defaults, config file, .env file, process
// environment.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.ConfigFile == "" {
		lc.ConfigFile = findFirst(lc.FileSystem, configSearchPaths(serviceName))
	}
	if lc.EnvFile == "" {
		lc.EnvFile = findFirst(lc.FileSystem, []string{".env." + serviceName, ".env"})
	}

	v := viper.New()
	for k, val := range lc.Defaults {
		v.SetDefault(k, val)
	}

	if lc.ConfigFile != "" {
		if !lc.FileSystem.Exists(lc.ConfigFile) {
			return fmt.Errorf("config file %s not found", lc.ConfigFile)
		}
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", lc.ConfigFile, err)
		}
	}

	if lc.EnvFile != "" && lc.FileSystem.Exists(lc.EnvFile) {
		if err := lc.FileSystem.LoadEnv(lc.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", lc.EnvFile, err)
		}
	}

	bindEnvVars(v, lc.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

func configSearchPaths(serviceName string) []string {
	var paths []string
	for _, ext := range []string{"yaml", "yml", "toml", "json"} {
		paths = append(paths,
			fmt.Sprintf("./cmd/%s/config.%s", serviceName, ext),
			fmt.Sprintf("./config/config.%s", ext),
			fmt.Sprintf("./config.%s", ext),
		)
	}
	return paths
}

func findFirst(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// bindEnvVars sets every nested key variant of each matching environment
// variable, so TRANSCODE_OUTPUT_EXTENSION reaches transcode.output_extension
// without the struct keys being declared up front.
func bindEnvVars(v *viper.Viper, prefix string, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			key = strings.TrimPrefix(key, prefix)
		}
		if key == "" {
			continue
		}
		for _, variant := range generateEnvKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants creates the dotted key variants for an env key.
//
//	KAFKA_GROUP_ID -> [kafka_group_id, kafka.group.id, kafka.group_id, kafka_group.id]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{lowerKey, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"))
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
