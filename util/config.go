package util

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Drolfothesgnir/pagec/compiler"
	"github.com/Drolfothesgnir/pagec/diag"
)

type Config struct {
	Environment       string        `mapstructure:"ENVIRONMENT"`
	HTTPServerAddress string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	RedisAddress      string        `mapstructure:"REDIS_ADDRESS"`
	ArtifactTTL       time.Duration `mapstructure:"ARTIFACT_TTL"`

	// PageRoot is the directory page paths are resolved against.
	PageRoot  string `mapstructure:"PAGE_ROOT"`
	OutputDir string `mapstructure:"OUTPUT_DIR"`

	// TaglibDir is the directory under PageRoot searched for tag library descriptors.
	TaglibDir string `mapstructure:"TAGLIB_DIR"`

	RuntimeImport   string `mapstructure:"RUNTIME_IMPORT"`
	OutputPackage   string `mapstructure:"OUTPUT_PACKAGE"`
	PoolTagHandlers bool   `mapstructure:"POOL_TAG_HANDLERS"`
	TextChunkSize   int    `mapstructure:"TEXT_CHUNK_SIZE"`
	PoolLiteralText bool   `mapstructure:"POOL_LITERAL_TEXT"`
	DefaultEncoding string `mapstructure:"DEFAULT_ENCODING"`
	MaxErrors       int    `mapstructure:"MAX_ERRORS"`
}

var defaults = map[string]any{
	"ENVIRONMENT":         "production",
	"HTTP_SERVER_ADDRESS": "http://0.0.0.0:8080",
	"REDIS_ADDRESS":       "localhost:6379",
	"ARTIFACT_TTL":        24 * time.Hour,
	"PAGE_ROOT":           ".",
	"OUTPUT_DIR":          "generated",
	"TAGLIB_DIR":          "WEB-INF",
	"RUNTIME_IMPORT":      "",
	"OUTPUT_PACKAGE":      "pages",
	"POOL_TAG_HANDLERS":   false,
	"TEXT_CHUNK_SIZE":     0,
	"POOL_LITERAL_TEXT":   false,
	"DEFAULT_ENCODING":    compiler.DefaultEncoding,
	"MAX_ERRORS":          100,
}

// LoadConfig reads app.env from path, overridden by the environment.
// A missing app.env is not an error: defaults and the environment are used.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Unmarshal only sees environment variables of known keys.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	err = v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

// CompilerOptions converts the configuration into the options of a compiler session.
func (config *Config) CompilerOptions() compiler.Options {
	opts := compiler.Options{
		Package:         config.OutputPackage,
		RuntimeImport:   config.RuntimeImport,
		PoolTagHandlers: config.PoolTagHandlers,
		TextChunkSize:   config.TextChunkSize,
		PoolLiteralText: config.PoolLiteralText,
		DefaultEncoding: config.DefaultEncoding,
		MaxErrors:       config.MaxErrors,
	}

	if opts.MaxErrors > 0 {
		opts.Overflow = diag.OverflowTrunc
	}
	return opts
}

// ExtractHostPort parses the HTTP server address and returns the host and port components.
// The scheme may be omitted. If no port is specified, port will be an empty string.
func (config *Config) ExtractHostPort() (host string, port string, err error) {
	addr := config.HTTPServerAddress
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		err = fmt.Errorf("error parsing http server url: %w", err)
		return
	}

	host, port = u.Hostname(), u.Port()
	if host == "" {
		err = fmt.Errorf("http server url %q has no host", config.HTTPServerAddress)
	}
	return
}

// ListenAddress is the host:port the HTTP server binds to.
func (config *Config) ListenAddress() (string, error) {
	host, port, err := config.ExtractHostPort()
	if err != nil {
		return "", err
	}

	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(host, port), nil
}
