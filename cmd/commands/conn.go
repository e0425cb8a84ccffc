package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/cellforge/udtforge/udtcfg"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/go-errors/errors"
	"github.com/urfave/cli"
)

// traceErrors makes Fatal print the stack of the error.
var traceErrors bool

// Fatal prints the error and exits.
func Fatal(err error) {
	if traceErrors {
		fmt.Fprintf(os.Stderr, "[udtcli] %v\n",
			errors.Wrap(err, 1).ErrorStack())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "[udtcli] %v\n", err)
	os.Exit(1)
}

// configArgs turns the global flags into the option list the config parser
// understands.
func configArgs(c *cli.Context) []string {
	var args []string
	for _, name := range []string{"udtforgedir", "configfile", "debuglevel"} {
		if v := c.GlobalString(name); v != "" {
			args = append(args, fmt.Sprintf("--%s=%s", name, v))
		}
	}
	for _, opt := range c.GlobalStringSlice("set") {
		args = append(args, "--"+strings.TrimPrefix(opt, "--"))
	}

	return args
}

// session is everything a command needs: the parsed config and the opened
// server.
type session struct {
	cfg *udtcfg.Config

	log btclog.Logger

	server *udtcfg.Server
}

// openSession loads the config and opens the server. The returned cleanup
// closes both.
func openSession(c *cli.Context) (*session, func(), error) {
	cfg, cfgLogger, err := udtcfg.LoadConfig(configArgs(c))
	if err != nil {
		return nil, nil, err
	}

	server, err := udtcfg.OpenServer(cfg, cfgLogger, initiator)
	if err != nil {
		_ = cfg.LogWriter.Close()
		return nil, nil, err
	}

	cleanUp := func() {
		if err := server.Close(); err != nil {
			cfgLogger.Errorf("Unable to close database: %v", err)
		}
		_ = cfg.LogWriter.Close()
	}

	return &session{
		cfg:    cfg,
		log:    cfgLogger,
		server: server,
	}, cleanUp, nil
}

// key loads the signing key, prompting on the terminal if so configured.
func (s *session) key() (*udtscript.Key, error) {
	return udtcfg.LoadKey(s.cfg.Key, udtcfg.TerminalPrompt)
}
