package core

import (
	"io"

	"zing/config"
	"zing/internal/metrics"
	"zing/internal/report"
	"zing/internal/resolve"
	"zing/internal/transport"
	"zing/util"
)

// Build validates cfg and constructs the probe run that implements it,
// writing report output to out.
func Build(cfg *config.Config, logger *util.Logger, out io.Writer) (Mode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ports := make([]int, len(cfg.Ports))
	copy(ports, cfg.Ports)

	return &ProbeMode{
		Target: Target{
			Host:   cfg.Host,
			Ports:  ports,
			Family: cfg.Family,
		},
		Plan: Plan{
			Cycles:        cfg.Cycles,
			Attempts:      cfg.Attempts,
			Timeout:       cfg.Timeout,
			FailoverDelay: cfg.FailoverDelay,
		},
		Resolver:  &resolve.System{},
		Connector: transport.NewConnector(),
		Reporter:  report.New(out, cfg.JSON),
		Metrics:   metrics.New(),
		Logger:    logger,
	}, nil
}
