package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Enabled: true,
		Brokers: []string{"localhost:9092"},
		Producer: ProducerConfig{
			Enabled: true,
		},
		Consumer: ConsumerConfig{
			Enabled: true,
		},
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	assert.Equal(t, "3.8.0", cfg.Version)
	assert.Equal(t, "articlecache", cfg.ClientID)
	assert.Equal(t, 1, cfg.Producer.RequiredAcks)
	assert.Equal(t, 10*time.Second, cfg.Producer.Timeout)
	assert.Equal(t, "none", cfg.Producer.Compression)
	assert.Equal(t, "articlecache", cfg.Consumer.GroupID)
	assert.Equal(t, []string{DefaultArticleTopic}, cfg.Consumer.Topics)
	assert.Equal(t, int64(-1), cfg.Consumer.OffsetInitial)
	assert.Equal(t, "range", cfg.Consumer.RebalanceStrategy)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Brokers = nil }, ""},
		{"no brokers", func(c *Config) { c.Brokers = nil }, "brokers cannot be empty"},
		{"empty broker", func(c *Config) { c.Brokers = []string{""} }, "broker address cannot be empty"},
		{"bad acks", func(c *Config) { c.Producer.RequiredAcks = 2 }, "required_acks"},
		{"bad compression", func(c *Config) { c.Producer.Compression = "brotli" }, "invalid compression"},
		{"empty topic", func(c *Config) { c.Consumer.Topics = []string{""} }, "topic name cannot be empty"},
		{"bad strategy", func(c *Config) { c.Consumer.RebalanceStrategy = "random" }, "invalid rebalance_strategy"},
		{"sasl without password", func(c *Config) { c.SASL = &SASLConfig{Enabled: true, Username: "u"} }, "sasl config invalid"},
		{"sasl unknown mechanism", func(c *Config) {
			c.SASL = &SASLConfig{Enabled: true, Mechanism: "GSSAPI", Username: "u", Password: "p"}
		}, "invalid mechanism: GSSAPI"},
		{"sasl scram", func(c *Config) {
			c.SASL = &SASLConfig{Enabled: true, Mechanism: MechanismSCRAMSHA256, Username: "u", Password: "p"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuildSaramaConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Producer.RequiredAcks = -1
	cfg.Producer.Compression = "zstd"
	cfg.Consumer.OffsetInitial = -2
	cfg.Consumer.RebalanceStrategy = "sticky"
	cfg.SASL = &SASLConfig{Enabled: true, Username: "u", Password: "p"}
	cfg.TLS = &TLSConfig{Enabled: true}
	cfg.ApplyDefaults()

	sc, err := BuildSaramaConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, sarama.V3_8_0_0, sc.Version)
	assert.Equal(t, "articlecache", sc.ClientID)
	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionZSTD, sc.Producer.Compression)
	assert.Equal(t, sarama.OffsetOldest, sc.Consumer.Offsets.Initial)
	require.Len(t, sc.Consumer.Group.Rebalance.GroupStrategies, 1)
	assert.Equal(t, sarama.StickyBalanceStrategyName, sc.Consumer.Group.Rebalance.GroupStrategies[0].Name())
	assert.True(t, sc.Net.SASL.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypePlaintext), sc.Net.SASL.Mechanism)
	assert.Equal(t, MechanismPlain, cfg.SASL.Mechanism)
	assert.True(t, sc.Net.TLS.Enable)
	require.NoError(t, sc.Validate())
}

func TestBuildSaramaConfig_SCRAM(t *testing.T) {
	tests := []struct {
		mechanism string
		want      sarama.SASLMechanism
	}{
		{MechanismSCRAMSHA256, sarama.SASLTypeSCRAMSHA256},
		{MechanismSCRAMSHA512, sarama.SASLTypeSCRAMSHA512},
	}
	for _, tt := range tests {
		t.Run(tt.mechanism, func(t *testing.T) {
			cfg := validConfig()
			cfg.SASL = &SASLConfig{Enabled: true, Mechanism: tt.mechanism, Username: "u", Password: "p"}
			cfg.ApplyDefaults()
			require.NoError(t, cfg.Validate())

			sc, err := BuildSaramaConfig(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sc.Net.SASL.Mechanism)
			require.NotNil(t, sc.Net.SASL.SCRAMClientGeneratorFunc)
			assert.NotNil(t, sc.Net.SASL.SCRAMClientGeneratorFunc())
			require.NoError(t, sc.Validate())
		})
	}
}

func TestBuildSaramaConfig_BadVersion(t *testing.T) {
	cfg := validConfig()
	cfg.Version = "not-a-version"

	_, err := BuildSaramaConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse kafka version failed")
}
