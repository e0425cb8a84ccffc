package udtcfg

import (
	"context"
	"fmt"

	"github.com/btcsuite/btclog"
	"github.com/cellforge/udtforge"
	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtdb"
	"github.com/cellforge/udtforge/udtgarden"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/sync/errgroup"
)

// ChainBackend is the node as seen by the server: the wallet's view of the
// chain plus the genesis lookup that locates the default lock.
type ChainBackend interface {
	udtwallet.ChainBridge

	// GenesisDeps returns the dep of the default lock.
	GenesisDeps(ctx context.Context) (*chainrpc.SecpDep, error)

	// TipBlockNumber returns the height of the chain tip.
	TipBlockNumber(ctx context.Context) (uint64, error)
}

// A compile-time assertion to ensure the RPC client is a ChainBackend.
var _ ChainBackend = (*chainrpc.Client)(nil)

// Server holds the long lived pieces a command works with: the chain
// backend and the journal database.
type Server struct {
	cfg *Config

	log btclog.Logger

	chain ChainBackend

	db udtdb.DatabaseBackend

	journal *udtdb.Journal
}

// NewServer wraps an already open chain backend and database.
func NewServer(cfg *Config, cfgLogger btclog.Logger, chain ChainBackend,
	db udtdb.DatabaseBackend) *Server {

	return &Server{
		cfg:     cfg,
		log:     cfgLogger,
		chain:   chain,
		db:      db,
		journal: udtdb.NewJournalFromBackend(
			db, clock.NewDefaultClock(),
		),
	}
}

// OpenDatabase opens the configured journal database.
func OpenDatabase(cfg *Config,
	cfgLogger btclog.Logger) (udtdb.DatabaseBackend, error) {

	var (
		db  udtdb.DatabaseBackend
		err error
	)
	switch cfg.DatabaseBackend {
	case DatabaseBackendSqlite:
		cfgLogger.Infof("Opening sqlite3 database at: %v",
			cfg.Sqlite.DatabaseFileName)
		db, err = udtdb.NewSqliteStore(cfg.Sqlite)

	case DatabaseBackendPostgres:
		cfgLogger.Infof("Opening postgres database at: %v",
			cfg.Postgres.DSN(true))
		db, err = udtdb.NewPostgresStore(cfg.Postgres)

	default:
		return nil, fmt.Errorf("unknown database backend: %s",
			cfg.DatabaseBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	return db, nil
}

// NewChainClient returns an RPC client for the configured node.
func NewChainClient(cfg *Config, initiator string) *chainrpc.Client {
	return chainrpc.NewClient(&chainrpc.Config{
		NodeURL:    cfg.Chain.NodeURL,
		IndexerURL: cfg.Chain.IndexerURL,
		Timeout:    cfg.Chain.RPCTimeout,
		PageSize:   cfg.Chain.PageSize,
		UserAgent:  udtforge.UserAgent(initiator),
	})
}

// OpenServer opens the database and the RPC client described by cfg.
func OpenServer(cfg *Config, cfgLogger btclog.Logger,
	initiator string) (*Server, error) {

	db, err := OpenDatabase(cfg, cfgLogger)
	if err != nil {
		return nil, err
	}

	chain := NewChainClient(cfg, initiator)

	return NewServer(cfg, cfgLogger, chain, db), nil
}

// Chain returns the chain backend.
func (s *Server) Chain() ChainBackend {
	return s.chain
}

// Journal returns the workflow journal.
func (s *Server) Journal() *udtdb.Journal {
	return s.journal
}

// Reserved returns the reserved set recorded by earlier runs, the starting
// point of the next workflow step.
func (s *Server) Reserved(ctx context.Context) (udtwallet.ReservedSet,
	error) {

	ctx, cancel := context.WithTimeout(ctx, udtdb.DefaultStoreTimeout)
	defer cancel()

	return s.journal.FetchReserved(ctx)
}

// Gardener wires a gardener that pays with and signs by key.
func (s *Server) Gardener(ctx context.Context,
	key *udtscript.Key) (*udtgarden.Gardener, error) {

	secpDep, err := s.chain.GenesisDeps(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Default lock dep: %v", spew.Sdump(secpDep))

	lock := key.LockScript()
	if secpDep.CodeHash != lock.CodeHash {
		return nil, fmt.Errorf("chain's default lock code hash %v "+
			"doesn't match %v", secpDep.CodeHash, lock.CodeHash)
	}

	assembler := udtwallet.NewAssembler(&udtwallet.AssemblerConfig{
		Chain:        s.chain,
		Builder:      udtwallet.NewSafeBuilder(&udtwallet.GreedySelector{}),
		Lock:         lock,
		StandardDeps: []cell.CellDep{secpDep.CellDep},
		Fee:          s.cfg.Fee,
	})

	return udtgarden.NewGardener(&udtgarden.GardenerConfig{
		Builder: assembler,
		Wallet:  udtwallet.NewWallet(s.chain, key),
		Journal: s.journal,
	}), nil
}

// Status is a snapshot of the node and the journal.
type Status struct {
	// TipBlockNumber is the height of the chain tip.
	TipBlockNumber uint64

	// LiveCells and LiveCapacity describe the cells guarded by the lock
	// passed to Status, if any.
	LiveCells    int
	LiveCapacity uint64

	Deployments []*udtgarden.DeployedCode

	Reserved udtwallet.ReservedSet
}

// Status queries the node and the journal concurrently. If lock is nil the
// live cells aren't looked up.
func (s *Server) Status(ctx context.Context, lock *cell.Script) (*Status,
	error) {

	var status Status
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		tip, err := s.chain.TipBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("unable to fetch tip: %w", err)
		}
		status.TipBlockNumber = tip

		return nil
	})

	if lock != nil {
		eg.Go(func() error {
			cells, err := s.chain.ListUnspent(ctx, *lock)
			if err != nil {
				return fmt.Errorf("unable to list cells: %w",
					err)
			}

			var total uint64
			for _, c := range cells {
				total, err = cell.Add(total, c.Output.Capacity)
				if err != nil {
					return err
				}
			}
			status.LiveCells = len(cells)
			status.LiveCapacity = total

			return nil
		})
	}

	eg.Go(func() error {
		dbCtx, cancel := context.WithTimeout(
			ctx, udtdb.DefaultStoreTimeout,
		)
		defer cancel()

		deployments, err := s.journal.ListDeployments(dbCtx)
		if err != nil {
			return err
		}
		status.Deployments = deployments

		return nil
	})

	eg.Go(func() error {
		reserved, err := s.Reserved(ctx)
		if err != nil {
			return err
		}
		status.Reserved = reserved

		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &status, nil
}

// Close closes the database.
func (s *Server) Close() error {
	return s.db.Close()
}
