package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [LoadFromReader] for fields left unset.
const (
	DefaultListenAddr         = ":8080"
	DefaultMaxDurationSeconds = 120
	DefaultAudioBitRate       = 128_000
	DefaultVideoBitRate       = 2_500_000
	DefaultWidth              = 640
	DefaultHeight             = 480
	DefaultChunkIntervalMS    = 1000
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with their default values.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Limits.MaxDurationSeconds == 0 {
		cfg.Limits.MaxDurationSeconds = DefaultMaxDurationSeconds
	}
	if cfg.Limits.MaxUploadBytes == 0 {
		cfg.Limits.MaxUploadBytes = -1
	}
	if cfg.Media.AudioBitRate == 0 {
		cfg.Media.AudioBitRate = DefaultAudioBitRate
	}
	if cfg.Media.VideoBitRate == 0 {
		cfg.Media.VideoBitRate = DefaultVideoBitRate
	}
	if cfg.Media.Width == 0 {
		cfg.Media.Width = DefaultWidth
	}
	if cfg.Media.Height == 0 {
		cfg.Media.Height = DefaultHeight
	}
	if cfg.Media.ChunkIntervalMS == 0 {
		cfg.Media.ChunkIntervalMS = DefaultChunkIntervalMS
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Upload.Endpoint == "" {
		errs = append(errs, errors.New("upload.endpoint is required"))
	}
	if cfg.Upload.RepositoryID <= 0 {
		errs = append(errs, errors.New("upload.repository_id must be a positive id"))
	}
	if cfg.Limits.MaxDurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_duration_seconds must be positive, got %d", cfg.Limits.MaxDurationSeconds))
	}
	if cfg.Limits.MaxUploadBytes < -1 {
		errs = append(errs, fmt.Errorf("limits.max_upload_bytes must be -1 (unbounded) or non-negative, got %d", cfg.Limits.MaxUploadBytes))
	}
	if cfg.Media.AudioBitRate < 0 {
		errs = append(errs, fmt.Errorf("media.audio_bitrate must be non-negative, got %d", cfg.Media.AudioBitRate))
	}
	if cfg.Media.VideoBitRate < 0 {
		errs = append(errs, fmt.Errorf("media.video_bitrate must be non-negative, got %d", cfg.Media.VideoBitRate))
	}
	if cfg.Media.Width < 0 || cfg.Media.Height < 0 {
		errs = append(errs, errors.New("media.width and media.height must be non-negative"))
	}

	return errors.Join(errs...)
}
