package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxBodySize     = 1 << 20

	DefaultDBDriver       = DriverPostgres
	DefaultDBHost         = "localhost"
	DefaultDBPort         = 5432
	DefaultDBUser         = "taskboard"
	DefaultDBName         = "taskboard"
	DefaultDBSSLMode      = "disable"
	DefaultDBMaxOpenConns = 25
	DefaultDBMaxIdleConns = 5

	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisPoolSize   = 10
	DefaultRedisSummaryTTL = 10 * time.Minute
	DefaultRedisKeyPrefix  = "taskboard:"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaTopic        = "taskboard.activity"
	DefaultKafkaClientID     = "taskboard"
	DefaultKafkaBatchTimeout = 10 * time.Millisecond

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "taskboard"

	DefaultRecurrenceAction = "archive"
	DefaultPreviewMaxCount  = 50
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDBDriver
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.SummaryTTL == 0 {
		cfg.Redis.SummaryTTL = DefaultRedisSummaryTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = DefaultKafkaClientID
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Recurrence ────────────────────────────────────────────────────────────
	if cfg.Recurrence.DefaultAction == "" {
		cfg.Recurrence.DefaultAction = DefaultRecurrenceAction
	}
	if cfg.Recurrence.PreviewMaxCount == 0 {
		cfg.Recurrence.PreviewMaxCount = DefaultPreviewMaxCount
	}
}

// registerKeys declares every key on v so AutomaticEnv can resolve
// TASKBOARD_* overrides during Unmarshal even when no config file sets them.
func registerKeys(v *viper.Viper) {
	defaults := map[string]interface{}{
		"server.host":                  DefaultServerHost,
		"server.port":                  DefaultServerPort,
		"server.read_timeout":          DefaultReadTimeout,
		"server.write_timeout":         DefaultWriteTimeout,
		"server.shutdown_timeout":      DefaultShutdownTimeout,
		"server.max_body_size":         DefaultMaxBodySize,
		"database.driver":              DefaultDBDriver,
		"database.host":                DefaultDBHost,
		"database.port":                DefaultDBPort,
		"database.user":                DefaultDBUser,
		"database.password":            "",
		"database.db_name":             DefaultDBName,
		"database.ssl_mode":            DefaultDBSSLMode,
		"database.max_open_conns":      DefaultDBMaxOpenConns,
		"database.max_idle_conns":      DefaultDBMaxIdleConns,
		"database.conn_max_lifetime":   time.Duration(0),
		"database.conn_max_idle_time":  time.Duration(0),
		"database.auto_migrate":        false,
		"redis.enabled":                false,
		"redis.addr":                   DefaultRedisAddr,
		"redis.password":               "",
		"redis.db":                     0,
		"redis.pool_size":              DefaultRedisPoolSize,
		"redis.summary_ttl":            DefaultRedisSummaryTTL,
		"redis.key_prefix":             DefaultRedisKeyPrefix,
		"kafka.enabled":                false,
		"kafka.brokers":                []string{DefaultKafkaBroker},
		"kafka.topic":                  DefaultKafkaTopic,
		"kafka.client_id":              DefaultKafkaClientID,
		"kafka.batch_timeout":          DefaultKafkaBatchTimeout,
		"kafka.required_acks":          1,
		"log.level":                    DefaultLogLevel,
		"log.format":                   DefaultLogFormat,
		"metrics.enabled":              true,
		"metrics.path":                 DefaultMetricsPath,
		"metrics.namespace":            DefaultMetricsNamespace,
		"recurrence.default_action":    DefaultRecurrenceAction,
		"recurrence.preview_max_count": DefaultPreviewMaxCount,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

//Personal.AI order the ending
