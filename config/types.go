package config

import "time"

// ServerConfig contains server configuration
type ServerConfig struct {
	Port        int    `yaml:"port" validate:"gt=0"`
	ProducerRef string `yaml:"producerRef"`
}

// KindConfig holds the per-data-kind tuning knobs.
type KindConfig struct {
	GraceMinutes int `yaml:"graceMinutes" validate:"gte=0"`
}

// RepositoryConfig holds the tuning knobs shared by the four kind
// repositories.
type RepositoryConfig struct {
	TrackingPeriodMinutes      int `yaml:"trackingPeriodMinutes" validate:"gt=0"`
	AdHocTrackingPeriodMinutes int `yaml:"adHocTrackingPeriodMinutes" validate:"gt=0"`
	CommitFrequencySeconds     int `yaml:"commitFrequencySeconds" validate:"gt=0"`
	CleanupIntervalSeconds     int `yaml:"cleanupIntervalSeconds" validate:"gte=0"`
	DefaultPageSize            int `yaml:"defaultPageSize" validate:"gte=0"`

	VM KindConfig `yaml:"vm"`
	ET KindConfig `yaml:"et"`
	SX KindConfig `yaml:"sx"`
	PT KindConfig `yaml:"pt"`
}

// StorageConfig selects the map backend.
type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory badger"`
	Path    string `yaml:"path"`
}

// KafkaTopics names the per-kind ingest topics. Empty topics are not
// consumed.
type KafkaTopics struct {
	VM string `yaml:"vm"`
	ET string `yaml:"et"`
	SX string `yaml:"sx"`
	PT string `yaml:"pt"`
}

// KafkaConfig configures the optional Kafka ingest adapter.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	GroupID string      `yaml:"groupId"`
	Topics  KafkaTopics `yaml:"topics"`
}

// ExportConfig toggles the GTFS-RT export endpoints.
type ExportConfig struct {
	GTFSRTEnabled bool `yaml:"gtfsrtEnabled"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server" validate:"required"`
	Repository RepositoryConfig `yaml:"repository"`
	Storage    StorageConfig    `yaml:"storage"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Export     ExportConfig     `yaml:"export"`
}

// TrackingPeriod returns the change-tracking retention as a duration.
func (r RepositoryConfig) TrackingPeriod() time.Duration {
	return time.Duration(r.TrackingPeriodMinutes) * time.Minute
}

// AdHocTrackingPeriod returns the retention for consumers without an id.
func (r RepositoryConfig) AdHocTrackingPeriod() time.Duration {
	return time.Duration(r.AdHocTrackingPeriodMinutes) * time.Minute
}

// CommitFrequency returns the change-set flush interval.
func (r RepositoryConfig) CommitFrequency() time.Duration {
	return time.Duration(r.CommitFrequencySeconds) * time.Second
}

// CleanupInterval returns the expired-entity sweep interval; zero
// disables the sweep.
func (r RepositoryConfig) CleanupInterval() time.Duration {
	return time.Duration(r.CleanupIntervalSeconds) * time.Second
}

// Grace returns the kind's grace period as a duration.
func (k KindConfig) Grace() time.Duration {
	return time.Duration(k.GraceMinutes) * time.Minute
}
