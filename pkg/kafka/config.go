package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds writer settings. Defaults favor durability over
// throughput; the decision stream is low volume and must not drop.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
	HashByKey    bool
}

// WithBrokers sets the broker addresses.
func WithBrokers(addrs []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = addrs
	}
}

// WithCompression selects the codec (gzip, snappy, lz4, zstd).
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = codec
	}
}

// WithRequiredAcks sets acknowledgement level; -1 waits for all replicas.
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

// WithMaxAttempts caps writer-level retries.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		c.MaxAttempts = n
	}
}

// WithBatchSize caps messages per batch.
func WithBatchSize(n int) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchSize = n
	}
}

// WithBatchTimeout bounds how long a partial batch waits before flushing.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchTimeout = d
	}
}

// WithBatchBytes caps aggregate bytes per batch.
func WithBatchBytes(n int) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchBytes = n
	}
}

// WithTimeouts sets writer write and read timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync enables fire-and-forget writes. Only suitable for the log
// topic; decision publishes need the error back.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// WithHashByKey keys partition assignment on the message key, keeping
// all decisions for one product in order on one partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.HashByKey = hash
	}
}
