// Package cli implements graspctl, the operator command line of the grasp planner.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/graspplanner/services/grasping"
)

const (
	flagAddress = "address"
	flagName    = "name"
	flagHand    = "hand"
	flagDebug   = "debug"
)

var handFlag = &cli.StringFlag{
	Name:  flagHand,
	Value: grasping.HandRight,
	Usage: "hand to plan for: right, left or both",
}

var app = &cli.App{
	Name:            "graspctl",
	Usage:           "compute and execute grasps with a running grasp planner",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagAddress,
			Aliases: []string{"a"},
			Value:   "localhost:8080",
			EnvVars: []string{"GRASP_PLANNER_ADDRESS"},
			Usage:   "planner `ADDRESS`",
		},
		&cli.StringFlag{
			Name:  flagName,
			Value: "superquadric-lib-demo",
			Usage: "name the planner is served under",
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "compute",
			Usage:     "look at an object, fit it and pick a grasp",
			ArgsUsage: "<object>",
			Flags:     []cli.Flag{handFlag},
			Action:    ComputeAction,
		},
		{
			Name:      "from-off",
			Usage:     "pick a grasp for the point cloud stored in a file",
			ArgsUsage: "<path>",
			Flags:     []cli.Flag{handFlag},
			Action:    FromOffAction,
		},
		{
			Name:   "grasp",
			Usage:  "execute the last computed grasp",
			Action: GraspAction,
		},
		{
			Name:   "drop",
			Usage:  "release the grasped object",
			Action: DropAction,
		},
		{
			Name:   "home",
			Usage:  "bring the arms home",
			Action: HomeAction,
		},
		{
			Name:   "take-tool",
			Usage:  "move a tool held by the right arm aside",
			Action: TakeToolAction,
		},
		{
			Name:   "open-hand",
			Usage:  "open the hand",
			Action: OpenHandAction,
		},
		{
			Name:      "single-superq",
			Usage:     "toggle fitting a single superquadric",
			ArgsUsage: "<on|off>",
			Action:    SingleSuperqAction,
		},
		{
			Name:   "selection",
			Usage:  "print the last computed grasp",
			Action: SelectionAction,
		},
	},
}

// NewApp returns the CLI application writing to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
