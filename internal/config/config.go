// Package config provides the configuration schema and loader for the
// Captor recording controller.
package config

// LogLevel controls log verbosity for the Captor server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Captor.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	Limits  LimitsConfig  `yaml:"limits"`
	Media   MediaConfig   `yaml:"media"`
	Journal JournalConfig `yaml:"journal"`
}

// ServerConfig holds network and logging settings for the Captor server.
type ServerConfig struct {
	// ListenAddr is the TCP address the widget/metrics server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// UploadConfig identifies the remote draft-storage endpoint.
type UploadConfig struct {
	// Endpoint is the repository upload endpoint URL.
	Endpoint string `yaml:"endpoint"`

	// SessKey is the opaque session token sent with every upload.
	SessKey string `yaml:"sesskey"`

	// RepositoryID selects the upload repository on the server.
	RepositoryID int64 `yaml:"repository_id"`

	// ContextID is the server-side context the draft areas belong to.
	ContextID int64 `yaml:"context_id"`

	// TimeoutSeconds bounds one upload exchange. 0 uses the pipeline
	// default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LimitsConfig holds the capture limits enforced during recording.
type LimitsConfig struct {
	// MaxDurationSeconds is the recording duration limit.
	MaxDurationSeconds int `yaml:"max_duration_seconds"`

	// MaxUploadBytes is the payload size limit in bytes; −1 disables it.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// MediaConfig holds the raw quality parameters resolved into capture
// settings.
type MediaConfig struct {
	// AudioBitRate is the target audio bit rate in bits per second.
	AudioBitRate int `yaml:"audio_bitrate"`

	// VideoBitRate is the target video bit rate in bits per second.
	VideoBitRate int `yaml:"video_bitrate"`

	// Width and Height are the requested video dimensions in pixels.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// ChunkIntervalMS is how often the recorder emits a chunk.
	ChunkIntervalMS int `yaml:"chunk_interval_ms"`
}

// JournalConfig locates the local attempt journal.
type JournalConfig struct {
	// Path is the SQLite database file. Empty disables the journal.
	Path string `yaml:"path"`
}
