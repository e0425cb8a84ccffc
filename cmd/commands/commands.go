package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cellforge/udtforge"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli"
)

const (
	// Environment variables names that can be used to set the global flags.
	envVarUdtforgeDir = "UDTCLI_UDTFORGEDIR"
	envVarConfigFile  = "UDTCLI_CONFIGFILE"
	envVarDebugLevel  = "UDTCLI_DEBUGLEVEL"

	// initiator is sent as part of the user agent.
	initiator = "udtcli"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewApp creates a new udtcli app with all the available commands.
func NewApp() cli.App {
	app := cli.NewApp()
	app.Name = "udtcli"
	app.Version = udtforge.Version()
	app.Usage = "deploy code cells, issue and move user defined tokens, " +
		"mint and update type id cells"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "udtforgedir",
			Usage:  "The path to udtforge's base directory.",
			EnvVar: envVarUdtforgeDir,
		},
		cli.StringFlag{
			Name:   "configfile",
			Usage:  "The path to the config file.",
			EnvVar: envVarConfigFile,
		},
		cli.StringFlag{
			Name: "debuglevel, d",
			Usage: "Logging level for all subsystems, or " +
				"<global>,<subsystem>=<level>,...",
			EnvVar: envVarDebugLevel,
		},
		cli.StringSliceFlag{
			Name: "set",
			Usage: "Set any config option as name=value, for " +
				"example chain.nodeurl=http://127.0.0.1:8114. " +
				"May be repeated.",
		},
	}
	app.Before = func(c *cli.Context) error {
		traceErrors = c.GlobalString("debuglevel") == "trace"
		return nil
	}

	app.Commands = []cli.Command{
		deployCommand,
		issueCommand,
		transferCommand,
		addressCommand,
		reservedCommand,
		statusCommand,
	}
	app.Commands = append(app.Commands, typeIDCommands...)
	app.Commands = append(app.Commands, scenarioCommands...)

	return *app
}

// getContext returns a context that is canceled on the first interrupt.
func getContext() (context.Context, func()) {
	return signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
}

func printJSON(resp interface{}) {
	b, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		Fatal(err)
	}

	fmt.Printf("%s\n", b)
}

// requireArg returns the named string flag, failing if it wasn't set.
func requireArg(c *cli.Context, name string) (string, error) {
	v := c.String(name)
	if v == "" {
		return "", fmt.Errorf("--%s must be set", name)
	}

	return v, nil
}
