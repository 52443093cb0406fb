package worker

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const (
	defaultHeartbeatTimeout = 20 * time.Second
	defaultDisownTimeout    = 5 * time.Second
	defaultConnectTimeout   = 5 * time.Second
)

// Config is the worker's configuration surface: uuid, app, endpoint,
// disown timeout, heartbeat timeout, plus the wire protocol version
// and an optional locator endpoint.
type Config struct {
	// UUID is the stable identity token the supervisor assigned this
	// worker process.
	UUID string `validate:"required"`
	// App is the application name; informational/logging only.
	App string `validate:"required"`
	// Endpoint is the Unix-domain socket path to dial.
	Endpoint string `validate:"required"`
	// Protocol selects the v0 or v1 wire profile.
	Protocol protocolVersion
	// DisownTimeout is how long the worker waits for a heartbeat
	// before considering itself disowned.
	DisownTimeout time.Duration `validate:"gt=0"`
	// HeartbeatTimeout is the interval between outgoing heartbeats.
	// Must exceed DisownTimeout.
	HeartbeatTimeout time.Duration `validate:"gt=0,gtfield=DisownTimeout"`
	// ConnectTimeout bounds the initial dial. Defaults to 5s.
	ConnectTimeout time.Duration `validate:"gt=0"`
	// LocatorEndpoint is an optional locator address used by the
	// locator sub-package; empty disables it.
	LocatorEndpoint string
}

var configValidator = validator.New()

// NewConfig validates cfg and returns a ready-to-use *Config,
// defaulting a zero ConnectTimeout. Construction fails closed: an
// invalid configuration (e.g. heartbeat <= disown) never produces a
// Worker.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if err := configValidator.Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "worker: invalid configuration")
	}
	return &cfg, nil
}

// Flags returns the worker's CLI flag surface.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "uuid", Usage: "worker identity assigned by the supervisor"},
		cli.StringFlag{Name: "app", Usage: "application name (informational)"},
		cli.StringFlag{Name: "endpoint", Usage: "unix-domain socket path to the runtime"},
		cli.StringFlag{Name: "locator", Usage: "optional locator endpoint for service resolution"},
		cli.IntFlag{Name: "protocol", Value: 1, Usage: "wire protocol version (0 or 1)"},
		cli.DurationFlag{Name: "disown-timeout", Value: defaultDisownTimeout, Usage: "time without a heartbeat before disowning (a duration, e.g. 5s)"},
		cli.DurationFlag{Name: "heartbeat-timeout", Value: defaultHeartbeatTimeout, Usage: "interval between outgoing heartbeats"},
	}
}

// ConfigFromCLI builds and validates a Config from a parsed CLI
// context using the flags Flags() registers.
func ConfigFromCLI(c *cli.Context) (*Config, error) {
	version := ProtocolV0
	if c.Int("protocol") != 0 {
		version = ProtocolV1
	}
	return NewConfig(Config{
		UUID:             c.String("uuid"),
		App:              c.String("app"),
		Endpoint:         c.String("endpoint"),
		LocatorEndpoint:  c.String("locator"),
		Protocol:         version,
		DisownTimeout:    c.Duration("disown-timeout"),
		HeartbeatTimeout: c.Duration("heartbeat-timeout"),
	})
}
