package udtforge

import (
	"github.com/btcsuite/btclog"
	"github.com/cellforge/udtforge/build"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtdb"
	"github.com/cellforge/udtforge/udtgarden"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/cellforge/udtforge/udtwallet"
)

// genSubLogger creates a logger for a subsystem.
func genSubLogger(root *build.RotatingLogWriter) func(string) btclog.Logger {
	return func(tag string) btclog.Logger {
		return root.GenSubLogger(tag)
	}
}

// SetupLoggers initializes all package-global logger variables.
func SetupLoggers(root *build.RotatingLogWriter) {
	AddSubLogger(root, udtscript.Subsystem, udtscript.UseLogger)
	AddSubLogger(root, chainrpc.Subsystem, chainrpc.UseLogger)
	AddSubLogger(root, udtwallet.Subsystem, udtwallet.UseLogger)
	AddSubLogger(root, udtgarden.Subsystem, udtgarden.UseLogger)
	AddSubLogger(root, udtdb.Subsystem, udtdb.UseLogger)
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.RotatingLogWriter, subsystem string,
	useLoggers ...func(btclog.Logger)) btclog.Logger {

	// genSubLogger will return a callback for creating a logger instance,
	// which we will give to the root logger.
	genLogger := genSubLogger(root)

	// Create and register just a single logger to prevent them from
	// overwriting each other internally.
	logger := build.NewSubLogger(subsystem, genLogger)
	SetSubLogger(root, subsystem, logger, useLoggers...)

	return logger
}

// SetSubLogger is a helper method to conveniently register the logger of a sub
// system.
func SetSubLogger(root *build.RotatingLogWriter, subsystem string,
	logger btclog.Logger, useLoggers ...func(btclog.Logger)) {

	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}
