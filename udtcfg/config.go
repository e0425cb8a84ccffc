// nolint:lll
package udtcfg

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/cellforge/udtforge"
	"github.com/cellforge/udtforge/build"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtdb"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/jessevdk/go-flags"
)

const (
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "udtforge.log"
	defaultConfigFileName = "udtforge.conf"
	defaultSqliteFileName = "udtforge.db"

	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10

	defaultNetwork = "testnet"
	defaultNodeURL = "http://127.0.0.1:8114"

	// DatabaseBackendSqlite is the name of the SQLite database backend.
	DatabaseBackendSqlite = "sqlite"

	// DatabaseBackendPostgres is the name of the Postgres database backend.
	DatabaseBackendPostgres = "postgres"
)

var (
	// DefaultUdtforgeDir is the default directory where udtforge tries to
	// find its configuration file and store its data. This is a directory
	// in the user's application data, for example:
	//   C:\Users\<username>\AppData\Local\Udtforge on Windows
	//   ~/.udtforge on Linux
	//   ~/Library/Application Support/Udtforge on MacOS
	DefaultUdtforgeDir = btcutil.AppDataDir("udtforge", false)

	// DefaultConfigFile is the default full path of udtforge's
	// configuration file.
	DefaultConfigFile = filepath.Join(DefaultUdtforgeDir, defaultConfigFileName)

	defaultDataDir = filepath.Join(DefaultUdtforgeDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(DefaultUdtforgeDir, defaultLogDirname)

	defaultSqliteDatabasePath = filepath.Join(
		defaultDataDir, defaultSqliteFileName,
	)
)

// ChainConfig houses the configuration of the node we talk to.
type ChainConfig struct {
	Network string `long:"network" description:"The network the node runs on, selects the address prefix." choice:"mainnet" choice:"testnet" choice:"devnet"`

	NodeURL    string        `long:"nodeurl" description:"The URL of the node's JSON-RPC endpoint."`
	IndexerURL string        `long:"indexerurl" description:"The URL of the indexer's JSON-RPC endpoint, defaults to the node URL."`
	RPCTimeout time.Duration `long:"rpctimeout" description:"The timeout of a single RPC call."`
	PageSize   uint64        `long:"pagesize" description:"The number of cells fetched per indexer call."`
}

// KeyConfig says where the signing key comes from. Exactly one source must
// be set.
type KeyConfig struct {
	PrivateKey string `long:"privkey" description:"The hex encoded secp256k1 private key owning the funding cells."`
	KeyFile    string `long:"keyfile" description:"A file holding the hex encoded private key."`
	Prompt     bool   `long:"prompt" description:"Read the private key from the terminal."`
}

// Config is the main config for udtforge.
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	UdtforgeDir string `long:"udtforgedir" description:"The base directory that contains udtforge's data, logs, configuration file, etc."`
	ConfigFile  string `long:"configfile" description:"Path to configuration file"`

	DataDir        string `long:"datadir" description:"The directory to store udtforge's data within"`
	LogDir         string `long:"logdir" description:"Directory to log output."`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems."`

	Fee uint64 `long:"fee" description:"The fee in shannons every transaction pays."`

	DatabaseBackend string `long:"databasebackend" description:"The database backend to use for the workflow journal." choice:"sqlite" choice:"postgres"`

	Sqlite   *udtdb.SqliteConfig   `group:"sqlite" namespace:"sqlite"`
	Postgres *udtdb.PostgresConfig `group:"postgres" namespace:"postgres"`

	Chain *ChainConfig `group:"chain" namespace:"chain"`
	Key   *KeyConfig   `group:"key" namespace:"key"`

	// LogWriter is the root logger that all of the daemon's subloggers are
	// hooked up to.
	LogWriter *build.RotatingLogWriter

	// network is the parsed address network.
	network udtscript.Network
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		UdtforgeDir:     DefaultUdtforgeDir,
		ConfigFile:      DefaultConfigFile,
		DataDir:         defaultDataDir,
		DebugLevel:      defaultLogLevel,
		LogDir:          defaultLogDir,
		MaxLogFiles:     defaultMaxLogFiles,
		MaxLogFileSize:  defaultMaxLogFileSize,
		Fee:             udtwallet.DefaultFee,
		DatabaseBackend: DatabaseBackendSqlite,
		Sqlite: &udtdb.SqliteConfig{
			DatabaseFileName: defaultSqliteDatabasePath,
		},
		Postgres: &udtdb.PostgresConfig{
			Host:               "localhost",
			Port:               5432,
			MaxOpenConnections: 10,
		},
		Chain: &ChainConfig{
			Network:    defaultNetwork,
			NodeURL:    defaultNodeURL,
			RPCTimeout: chainrpc.DefaultTimeout,
			PageSize:   chainrpc.DefaultPageSize,
		},
		Key:       &KeyConfig{},
		LogWriter: build.NewRotatingLogWriter(),
	}
}

// Network returns the address network of the validated config.
func (c *Config) Network() udtscript.Network {
	return c.network
}

// LoadConfig initializes and parses the config using a config file and the
// given command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the options to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse the options again and overwrite/add any specified options
func LoadConfig(args []string) (*Config, btclog.Logger, error) {
	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := flags.ParseArgs(&preCfg, args); err != nil {
		return nil, nil, err
	}

	// If the config file path has not been modified by the user, then
	// we'll use the default config file path. However, if the user has
	// modified their udtforgedir, then we should assume they intend to use
	// the config file within it.
	configFileDir := CleanAndExpandPath(preCfg.UdtforgeDir)
	configFilePath := CleanAndExpandPath(preCfg.ConfigFile)
	switch {
	// User specified --udtforgedir but no --configfile. Update the config
	// file path to the udtforge config directory, but don't require it to
	// exist.
	case configFileDir != DefaultUdtforgeDir &&
		configFilePath == DefaultConfigFile:

		configFilePath = filepath.Join(
			configFileDir, defaultConfigFileName,
		)

	// User did specify an explicit --configfile, so we check that it does
	// exist under that path to avoid surprises.
	case configFilePath != DefaultConfigFile:
		if !fileExists(configFilePath) {
			return nil, nil, fmt.Errorf("specified config file does "+
				"not exist in %s", configFilePath)
		}
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(configFilePath)
	if err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		if _, ok := err.(*flags.IniError); ok {
			return nil, nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	flagParser := flags.NewParser(&cfg, flags.Default)
	if _, err := flagParser.ParseArgs(args); err != nil {
		return nil, nil, err
	}

	// Make sure everything we just loaded makes sense.
	cleanCfg, err := ValidateConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	// Initialize logging at the default logging level.
	udtforge.SetupLoggers(cleanCfg.LogWriter)
	cfgLogger := udtforge.AddSubLogger(cleanCfg.LogWriter, "CONF")

	err = cleanCfg.LogWriter.InitLogRotator(
		filepath.Join(cleanCfg.LogDir, defaultLogFilename),
		cleanCfg.MaxLogFileSize, cleanCfg.MaxLogFiles,
	)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		return nil, nil, err
	}

	// Parse, validate, and set debug log level(s).
	err = build.ParseAndSetDebugLevels(
		cleanCfg.DebugLevel, cleanCfg.LogWriter,
	)
	if err != nil {
		str := "error parsing debug level: %v"
		cfgLogger.Warnf(str, err)
		return nil, nil, fmt.Errorf(str, err)
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		cfgLogger.Debugf("%v", configFileError)
	}

	return cleanCfg, cfgLogger, nil
}

// ValidateConfig check the given configuration to be sane. This makes sure no
// illegal values or combination of values are set. All file system paths are
// normalized. The cleaned up config is returned on success.
func ValidateConfig(cfg Config) (*Config, error) {
	// If the provided udtforge directory is not the default, we'll modify
	// the path to all of the files and directories that will live within
	// it.
	udtforgeDir := CleanAndExpandPath(cfg.UdtforgeDir)
	if udtforgeDir != DefaultUdtforgeDir {
		cfg.DataDir = filepath.Join(udtforgeDir, defaultDataDirname)
		cfg.LogDir = filepath.Join(udtforgeDir, defaultLogDirname)

		if cfg.Sqlite.DatabaseFileName == defaultSqliteDatabasePath {
			cfg.Sqlite.DatabaseFileName = filepath.Join(
				cfg.DataDir, defaultSqliteFileName,
			)
		}
	}

	funcName := "ValidateConfig"
	mkErr := func(format string, args ...interface{}) error {
		return fmt.Errorf(funcName+": "+format, args...)
	}
	makeDirectory := func(dir string) error {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			// Show a nicer error message if it's because a symlink
			// is linked to a directory that does not exist
			// (probably because it's not mounted).
			if e, ok := err.(*os.PathError); ok && os.IsExist(err) {
				link, lerr := os.Readlink(e.Path)
				if lerr == nil {
					str := "is symlink %s -> %s mounted?"
					err = fmt.Errorf(str, e.Path, link)
				}
			}

			str := "Failed to create udtforge directory '%s': %v"
			return mkErr(str, dir, err)
		}

		return nil
	}

	// As soon as we're done parsing configuration options, ensure all
	// paths to directories and files are cleaned and expanded before
	// attempting to use them later on.
	cfg.DataDir = CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = CleanAndExpandPath(cfg.LogDir)
	cfg.Sqlite.DatabaseFileName = CleanAndExpandPath(
		cfg.Sqlite.DatabaseFileName,
	)
	cfg.Key.KeyFile = CleanAndExpandPath(cfg.Key.KeyFile)

	// Create the udtforge directory and all other sub-directories if they
	// don't already exist. This makes sure that directory trees are also
	// created for files that point to outside the udtforge dir.
	dirs := []string{udtforgeDir, cfg.DataDir, cfg.LogDir}
	if cfg.DatabaseBackend == DatabaseBackendSqlite {
		dirs = append(dirs, filepath.Dir(cfg.Sqlite.DatabaseFileName))
	}
	for _, dir := range dirs {
		if err := makeDirectory(dir); err != nil {
			return nil, err
		}
	}

	var err error
	cfg.network, err = udtscript.ParseNetwork(cfg.Chain.Network)
	if err != nil {
		return nil, mkErr("%v", err)
	}

	if cfg.Chain.NodeURL == "" {
		return nil, mkErr("a node URL must be set")
	}

	switch cfg.DatabaseBackend {
	case DatabaseBackendSqlite:
		if cfg.Sqlite.DatabaseFileName == "" {
			return nil, mkErr("a sqlite database file must be set")
		}

	case DatabaseBackendPostgres:
		if cfg.Postgres.Host == "" || cfg.Postgres.DBName == "" {
			return nil, mkErr("postgres host and dbname must be set")
		}

	default:
		return nil, mkErr("unknown database backend: %v",
			cfg.DatabaseBackend)
	}

	// At most one key source may be set. No source at all is fine for
	// the read only commands.
	numKeySources := 0
	for _, set := range []bool{
		cfg.Key.PrivateKey != "", cfg.Key.KeyFile != "", cfg.Key.Prompt,
	} {
		if set {
			numKeySources++
		}
	}
	if numKeySources > 1 {
		return nil, mkErr("only one of privkey, keyfile and prompt " +
			"may be set")
	}

	// Validate the profile of the log rotation.
	if cfg.MaxLogFiles < 0 || cfg.MaxLogFileSize < 0 {
		return nil, mkErr("log rotation settings must not be negative")
	}

	return &cfg, nil
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
