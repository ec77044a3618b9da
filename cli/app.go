// Package cli contains the rhsctl command line: it lints autonomous scripts and commands a
// running robot over NATS.
package cli

import (
	"io"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v2"

	"go.viam.com/rhsrobot/channel/natsbridge"
	"go.viam.com/rhsrobot/config"
	"go.viam.com/rhsrobot/input"
	"go.viam.com/rhsrobot/script"
)

// Flags.
const (
	flagNATS    = "nats"
	flagPrefix  = "prefix"
	flagTimeout = "timeout"
	flagDebug   = "debug"

	flagMaxVelocity = "max-velocity"
	flagCapacity    = "capacity"
	flagPaused      = "paused"
	flagAxis        = "axis"
	flagButton      = "button"

	flagTankLeft      = "tank-left"
	flagTankRight     = "tank-right"
	flagArcadeX       = "arcade-x"
	flagArcadeY       = "arcade-y"
	flagDriveSpeed    = "drive-speed"
	flagDriveDistance = "drive-distance"
	flagDriveTime     = "drive-time"
	flagTurnAngle     = "turn-angle"
	flagTurnSpeed     = "turn-speed"
	flagOpTimeout     = "op-timeout"
	flagNumTotes      = "num-totes"
)

var paramFlags = []cli.Flag{
	&cli.Float64Flag{Name: flagTankLeft, Usage: "left tank power"},
	&cli.Float64Flag{Name: flagTankRight, Usage: "right tank power"},
	&cli.Float64Flag{Name: flagArcadeX, Usage: "arcade x axis"},
	&cli.Float64Flag{Name: flagArcadeY, Usage: "arcade y axis"},
	&cli.Float64Flag{Name: flagDriveSpeed, Usage: "drive speed"},
	&cli.Float64Flag{Name: flagDriveDistance, Usage: "drive distance in inches"},
	&cli.Float64Flag{Name: flagDriveTime, Usage: "drive time in seconds"},
	&cli.Float64Flag{Name: flagTurnAngle, Usage: "turn angle in degrees"},
	&cli.Float64Flag{Name: flagTurnSpeed, Usage: "turn speed"},
	&cli.Float64Flag{Name: flagOpTimeout, Usage: "timeout the subsystem applies, in seconds"},
	&cli.IntFlag{Name: flagNumTotes, Usage: "number of totes"},
}

var app = &cli.App{
	Name:            "rhsctl",
	Usage:           "check autonomous scripts and command a robot",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagNATS,
			Usage:   "NATS server the robot is bridged to",
			Value:   nats.DefaultURL,
			EnvVars: []string{"RHS_NATS_URL"},
		},
		&cli.StringFlag{
			Name:  flagPrefix,
			Usage: "subject prefix the robot listens under",
			Value: config.DefaultNATSPrefix,
		},
		&cli.DurationFlag{
			Name:  flagTimeout,
			Usage: "how long to wait for a reply",
			Value: natsbridge.DefaultCallTimeout,
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "check",
			Usage:     "lint an autonomous script",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				&cli.Float64Flag{
					Name:  flagMaxVelocity,
					Usage: "largest speed a script may request",
					Value: config.DefaultMaxVelocity,
				},
				&cli.IntFlag{
					Name:  flagCapacity,
					Usage: "most lines a script may hold",
					Value: script.DefaultCapacity,
				},
			},
			Action: CheckAction,
		},
		{
			Name:   "channels",
			Usage:  "list the robot's channels and their subjects",
			Action: ChannelsAction,
		},
		{
			Name:      "send",
			Usage:     "send a command without waiting",
			ArgsUsage: "<channel> <command>",
			Flags:     paramFlags,
			Action:    SendAction,
		},
		{
			Name:      "call",
			Usage:     "send a command and wait for the subsystem to finish it",
			ArgsUsage: "<channel> <command>",
			Flags:     paramFlags,
			Action:    CallAction,
		},
		{
			Name:      "mode",
			Usage:     "change the robot's mode",
			ArgsUsage: "<disabled|autonomous|teleoperated|test>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: flagPaused, Usage: "pause autonomous"},
			},
			Action: ModeAction,
		},
		{
			Name:      "stick",
			Usage:     "publish one controller snapshot",
			ArgsUsage: "<" + input.Driver.String() + "|" + input.Operator.String() + ">",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: flagAxis, Usage: "axis position as `NAME=VALUE`"},
				&cli.StringSliceFlag{Name: flagButton, Usage: "held `BUTTON`"},
			},
			Action: StickAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
