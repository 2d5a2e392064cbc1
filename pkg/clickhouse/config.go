package clickhouse

import (
	"fmt"
	"time"
)

// Protocol selects the ClickHouse wire protocol and doubles as the DSN scheme.
type Protocol string

const (
	Native Protocol = "clickhouse"
	HTTP   Protocol = "http"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds the connection settings of the report store.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Protocol Protocol

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration

	// Settings are server settings sent as DSN query parameters.
	Settings map[string]string
}

// WithAddr sets host and port. A zero port keeps the protocol default.
func WithAddr(host string, port int) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

// WithDatabase sets the database the client connects to.
func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) {
		c.Database = database
	}
}

// WithCredentials sets username and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithProtocol selects native or HTTP. "native" and "" map to Native.
func WithProtocol(p Protocol) ClientOption {
	return func(c *ClientConfig) {
		switch p {
		case HTTP:
			c.Protocol = HTTP
		default:
			c.Protocol = Native
		}
	}
}

// WithPool sets connection pool limits.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = lifetime
	}
}

// WithTimeouts sets dial and read timeouts.
func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout = dial
		c.ReadTimeout = read
	}
}

// WithSetting passes one server setting through the DSN.
func WithSetting(key, value string) ClientOption {
	return func(c *ClientConfig) {
		if c.Settings == nil {
			c.Settings = make(map[string]string)
		}
		c.Settings[key] = value
	}
}

// WithAsyncInsert enables server-side insert buffering. Disabled is a no-op.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		if !enabled {
			return
		}
		WithSetting("async_insert", "1")(c)
		if wait {
			WithSetting("wait_for_async_insert", "1")(c)
		}
	}
}

// WithMaxExecutionTime caps server-side query time, in whole seconds.
func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if secs := int(d.Seconds()); secs > 0 {
			WithSetting("max_execution_time", fmt.Sprint(secs))(c)
		}
	}
}
