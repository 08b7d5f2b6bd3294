package kafka

import (
	"fmt"
	"time"
)

// DefaultArticleTopic topic carrying published articles
const DefaultArticleTopic = "articles.published"

// Config Kafka settings
type Config struct {
	// Enabled 未开启时不建立连接，也不启动消费者
	Enabled bool `mapstructure:"enabled"`

	// List of Kafka cluster addresses for brokers
	Brokers []string `mapstructure:"brokers"`

	// Kafka version (e.g., "3.8.0")
	Version string `mapstructure:"version"`

	// ClientID client identifier
	ClientID string `mapstructure:"client_id"`

	Producer ProducerConfig `mapstructure:"producer"`
	Consumer ConsumerConfig `mapstructure:"consumer"`

	// SASL authentication (optional): PLAIN or SCRAM
	SASL *SASLConfig `mapstructure:"sasl"`

	// TLS configuration (optional)
	TLS *TLSConfig `mapstructure:"tls"`
}

// ProducerConfig producer configuration
type ProducerConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// RequiredAcks acknowledgment level: 0=NoResponse, 1=WaitForLocal, -1=WaitForAll
	RequiredAcks int `mapstructure:"required_acks"`

	Timeout time.Duration `mapstructure:"timeout"`

	RetryMax int `mapstructure:"retry_max"`

	// Compression algorithm: none, gzip, snappy, lz4, zstd
	Compression string `mapstructure:"compression"`
}

// ConsumerConfig consumer configuration
type ConsumerConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// GroupID consumer group ID
	GroupID string `mapstructure:"group_id"`

	Topics []string `mapstructure:"topics"`

	// OffsetInitial Initial Offset: -1=Newest, -2=Oldest
	OffsetInitial int64 `mapstructure:"offset_initial"`

	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// RebalanceStrategy rebalancing strategy: range, roundrobin, sticky
	RebalanceStrategy string `mapstructure:"rebalance_strategy"`
}

// SASLConfig SASL authentication
type SASLConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Mechanism PLAIN (default), SCRAM-SHA-256 or SCRAM-SHA-512
	Mechanism string `mapstructure:"mechanism"`

	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// TLSConfig TLS configuration
type TLSConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// Validate configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers cannot be empty")
	}
	for _, broker := range c.Brokers {
		if broker == "" {
			return fmt.Errorf("broker address cannot be empty")
		}
	}

	if c.Producer.Enabled {
		if err := c.Producer.Validate(); err != nil {
			return fmt.Errorf("producer config invalid: %w", err)
		}
	}

	if c.Consumer.Enabled {
		if err := c.Consumer.Validate(); err != nil {
			return fmt.Errorf("consumer config invalid: %w", err)
		}
	}

	if c.SASL != nil && c.SASL.Enabled {
		if err := c.SASL.Validate(); err != nil {
			return fmt.Errorf("sasl config invalid: %w", err)
		}
	}

	return nil
}

// Validate SASL configuration
func (c *SASLConfig) Validate() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	switch c.Mechanism {
	case "", MechanismPlain, MechanismSCRAMSHA256, MechanismSCRAMSHA512:
		return nil
	default:
		return fmt.Errorf("invalid mechanism: %s", c.Mechanism)
	}
}

// Validate producer configuration
func (c *ProducerConfig) Validate() error {
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("required_acks must be -1, 0, or 1, got: %d", c.RequiredAcks)
	}

	switch c.Compression {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
		return nil
	default:
		return fmt.Errorf("invalid compression: %s", c.Compression)
	}
}

// Validate consumer configuration
func (c *ConsumerConfig) Validate() error {
	if c.GroupID == "" {
		return fmt.Errorf("group_id cannot be empty")
	}

	if len(c.Topics) == 0 {
		return fmt.Errorf("topics cannot be empty")
	}
	for _, topic := range c.Topics {
		if topic == "" {
			return fmt.Errorf("topic name cannot be empty")
		}
	}

	switch c.RebalanceStrategy {
	case "", "range", "roundrobin", "sticky":
		return nil
	default:
		return fmt.Errorf("invalid rebalance_strategy: %s", c.RebalanceStrategy)
	}
}

// ApplyDefaults Apply default values
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "3.8.0"
	}

	if c.ClientID == "" {
		c.ClientID = "articlecache"
	}

	c.Producer.ApplyDefaults()
	c.Consumer.ApplyDefaults()
	if c.SASL != nil && c.SASL.Mechanism == "" {
		c.SASL.Mechanism = MechanismPlain
	}
}

// ApplyDefaults producer defaults
func (c *ProducerConfig) ApplyDefaults() {
	if c.RequiredAcks == 0 {
		c.RequiredAcks = 1 // WaitForLocal
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryMax == 0 {
		c.RetryMax = 3
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
}

// ApplyDefaults consumer defaults
func (c *ConsumerConfig) ApplyDefaults() {
	if c.GroupID == "" {
		c.GroupID = "articlecache"
	}
	if len(c.Topics) == 0 {
		c.Topics = []string{DefaultArticleTopic}
	}
	if c.OffsetInitial == 0 {
		c.OffsetInitial = -1 // Newest
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = 10 * time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 3 * time.Second
	}
	if c.RebalanceStrategy == "" {
		c.RebalanceStrategy = "range"
	}
}
