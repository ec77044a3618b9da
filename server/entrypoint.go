// Package server runs a simulated robot: the messaging kernel over fake hardware, the teleop
// translator, the NATS bridge and the metrics endpoint.
package server

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/channel/natsbridge"
	"go.viam.com/rhsrobot/config"
	"go.viam.com/rhsrobot/input"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/metrics"
	"go.viam.com/rhsrobot/robot"
)

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=robot config file"`
	Debug      bool   `flag:"debug"`
	Metrics    string `flag:"metrics,usage=address to serve metrics on"`
	NoMetrics  bool   `flag:"no-metrics,usage=do not serve metrics"`
	Version    bool   `flag:"version,usage=print version"`
}

// RunServer reads the config named on the command line and runs the robot until ctx is done.
func RunServer(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	logger.Infof("rhsrobot version: %s, hash: %s", config.Version, config.GitRevision)
	if argsParsed.Version {
		return nil
	}

	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	if argsParsed.Debug {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(cfg.Log.Level)
	}
	if cfg.Log.File != "" {
		appender, closer := logging.NewFileAppender(cfg.Log.FileAppender())
		logger.AddAppender(appender)
		defer func() {
			err = multierr.Combine(err, closer.Close())
		}()
	}

	addr := argsParsed.Metrics
	if addr == "" {
		addr = cfg.Metrics.Address
	}
	if addr == "" {
		addr = config.DefaultMetricsAddress
	}
	if argsParsed.NoMetrics {
		addr = ""
	}
	return Run(ctx, cfg, addr, logger)
}

// Run builds the robot from cfg and serves it until ctx is done. Metrics are served on
// metricsAddr unless it is empty.
func Run(ctx context.Context, cfg *config.Config, metricsAddr string, logger logging.Logger) (err error) {
	m := metrics.New()
	hw := robot.NewFakeHardware(logger.Sublogger("hardware"))
	r, err := robot.New(ctx, cfg, hw.Hardware(), logger, robot.WithObserver(m))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.Close())
	}()

	driver, operator := &input.StateSource{}, &input.StateSource{}
	if cfg.NATS.URL != "" {
		conn, err := natsbridge.Connect(cfg.NATS.URL, "rhsrobot", logger.Sublogger("nats"))
		if err != nil {
			return err
		}
		defer conn.Close()
		bridge, err := startBridge(conn, r, cfg.NATS, driver, operator, logger.Sublogger("nats"))
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, bridge.Close())
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		g.Go(func() error {
			return m.Serve(gctx, metricsAddr, logger.Sublogger("metrics"))
		})
	}
	translator := input.NewTranslator(r, logger.Sublogger("teleop"))
	g.Go(func() error {
		translator.Run(gctx, input.DefaultPollInterval,
			input.NewListener(driver, nil), input.NewListener(operator, nil))
		return nil
	})
	logger.Infow("robot running", "nats", cfg.NATS.URL, "metrics", metricsAddr)
	return g.Wait()
}

func startBridge(
	conn *nats.Conn,
	r *robot.Robot,
	cfg config.NATS,
	driver, operator *input.StateSource,
	logger logging.Logger,
) (_ *natsbridge.Bridge, err error) {
	bridge, err := natsbridge.New(conn, r.Registry(), cfg.Prefix, logger, natsbridge.WithModeSetter(r))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, bridge.Close())
		}
	}()

	names := cfg.Channels
	if len(names) == 0 {
		names = channel.ActorChannels()
	}
	err = multierr.Combine(
		bridge.InboundChannels(names...),
		bridge.Modes(),
		bridge.Input(input.Driver, driver),
		bridge.Input(input.Operator, operator),
	)
	if err != nil {
		return nil, err
	}
	return bridge, nil
}
