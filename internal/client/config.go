package client

import (
	"fmt"
	"sync"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/client/control"
	"github.com/flightlab-io/flightlab/internal/client/server/http"
	"github.com/flightlab-io/flightlab/internal/client/supervisor"
	"github.com/flightlab-io/flightlab/internal/component"
	_ "github.com/flightlab-io/flightlab/internal/component/all"
	"github.com/flightlab-io/flightlab/internal/config"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

type Config struct {
	SystemConfig *v1.SystemConfig
	// MachineName selects the local machine. Empty means resolve it from
	// the host's addresses and hostname.
	MachineName    string
	ControlOptions *options.ControlOptions
	HttpOptions    *options.HttpOptions
	S3Options      *options.S3Options
}

// NewClient resolves the local machine and builds its components, the link to
// the master and the local listener.
func (cfg *Config) NewClient() (*Client, error) {
	host, err := config.LocalHost()
	if err != nil {
		return nil, err
	}
	machine, err := config.ResolveMachine(cfg.SystemConfig, cfg.MachineName, host)
	if err != nil {
		return nil, err
	}

	addr := cfg.ControlOptions.Addr
	if addr == "" {
		if addr, err = config.MasterAddr(cfg.SystemConfig); err != nil {
			return nil, err
		}
	}

	l := log.WithName("client").WithValues("machine", machine.Name)
	c := &Client{machine: machine.Name, exit: make(chan struct{}), log: l}

	sup, err := supervisor.New(machine, component.Deps{Logger: l, S3: cfg.S3Options},
		supervisor.WithExit(c.requestExit))
	if err != nil {
		return nil, fmt.Errorf("failed to build components: %w", err)
	}

	ctl, err := control.Dial(addr, machine.Name, cfg.ControlOptions,
		control.WithLogger(l.WithName("control")),
		control.WithCommandHandler(sup.HandleCommand),
		control.WithStatusSource(sup.Statuses),
	)
	if err != nil {
		sup.Shutdown()
		return nil, err
	}

	c.supervisor = sup
	c.control = ctl
	c.listener = http.NewServer(cfg.HttpOptions, sup, l.WithName("http"))
	return c, nil
}

type Client struct {
	machine    string
	supervisor *supervisor.Supervisor
	control    *control.Client
	listener   *http.Server
	log        log.Logger

	exit     chan struct{}
	exitOnce sync.Once
}

func (c *Client) requestExit() {
	c.exitOnce.Do(func() { close(c.exit) })
}
