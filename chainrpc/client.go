package chainrpc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cellforge/udtforge/cell"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

const (
	// DefaultTimeout is the timeout of a single RPC call.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the number of cells fetched per get_cells call.
	DefaultPageSize = 100

	// outputsValidatorPassthrough disables the node's default output
	// checks, which would refuse our custom type scripts.
	outputsValidatorPassthrough = "passthrough"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNotFound is returned when the node doesn't know the requested
	// object.
	ErrNotFound = errors.New("not found")
)

// Config configures the RPC client.
type Config struct {
	// NodeURL is the URL of the node's JSON-RPC endpoint.
	NodeURL string

	// IndexerURL is the URL of the indexer's JSON-RPC endpoint. The node
	// URL is used if empty, as newer nodes ship the indexer built in.
	IndexerURL string

	// Timeout bounds every call.
	Timeout time.Duration

	// PageSize is the number of cells fetched per get_cells call.
	PageSize uint64

	// UserAgent is sent with every request.
	UserAgent string
}

// Client talks JSON-RPC to a node and its indexer.
type Client struct {
	cfg *Config

	rest *resty.Client

	nextID uint64
}

// NewClient returns a new Client.
func NewClient(cfg *Config) *Client {
	if cfg.IndexerURL == "" {
		cfg.IndexerURL = cfg.NodeURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}

	rest := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		rest.SetHeader("User-Agent", cfg.UserAgent)
	}
	rest.JSONMarshal = json.Marshal
	rest.JSONUnmarshal = json.Unmarshal

	return &Client{
		cfg:  cfg,
		rest: rest,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      uint64              `json:"id"`
	Result  jsoniter.RawMessage `json:"result"`
	Error   *RPCError           `json:"error"`
}

// call runs a single JSON-RPC call against url, decoding the result into
// result. A null result is reported as ErrNotFound.
func (c *Client) call(ctx context.Context, url, method string,
	result interface{}, params ...interface{}) error {

	if params == nil {
		params = []interface{}{}
	}
	req := &rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.nextID, 1),
		Method:  method,
		Params:  params,
	}

	log.Tracef("Calling %v (id=%d) on %v", method, req.ID, url)

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		Post(url)
	if err != nil {
		return fmt.Errorf("%v: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%v: http status %v", method, resp.Status())
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(resp.Body(), &rpcResp); err != nil {
		return fmt.Errorf("%v: unable to decode response: %w", method,
			err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return fmt.Errorf("%v: %w", method, ErrNotFound)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("%v: unable to decode result: %w", method,
			err)
	}

	return nil
}

// TipBlockNumber returns the number of the node's best block.
func (c *Client) TipBlockNumber(ctx context.Context) (uint64, error) {
	var tip HexUint64
	err := c.call(ctx, c.cfg.NodeURL, "get_tip_block_number", &tip)
	if err != nil {
		return 0, err
	}

	return uint64(tip), nil
}

// BlockByNumber returns the block at the given height.
func (c *Client) BlockByNumber(ctx context.Context,
	number uint64) (*Block, error) {

	var block Block
	err := c.call(
		ctx, c.cfg.NodeURL, "get_block_by_number", &block,
		HexUint64(number),
	)
	if err != nil {
		return nil, err
	}

	return &block, nil
}

// Transaction returns a transaction and its status.
func (c *Client) Transaction(ctx context.Context,
	txHash cell.Hash) (*TransactionWithStatus, error) {

	var tx TransactionWithStatus
	err := c.call(
		ctx, c.cfg.NodeURL, "get_transaction", &tx, HexHash(txHash),
	)
	if err != nil {
		return nil, err
	}

	return &tx, nil
}

// TransactionStatus returns the node's view of the transaction: pending,
// proposed, committed, rejected or unknown.
func (c *Client) TransactionStatus(ctx context.Context,
	txHash cell.Hash) (string, error) {

	tx, err := c.Transaction(ctx, txHash)
	switch {
	case errors.Is(err, ErrNotFound):
		return "unknown", nil

	case err != nil:
		return "", err
	}

	return tx.TxStatus.Status, nil
}

// cellsPage fetches one page of live cells guarded by lock.
func (c *Client) cellsPage(ctx context.Context, lock cell.Script,
	cursor string) (*cellsPage, error) {

	params := []interface{}{
		SearchKey{
			Script:     NewScript(lock),
			ScriptType: "lock",
			WithData:   true,
		},
		"asc",
		HexUint64(c.cfg.PageSize),
	}
	if cursor != "" {
		params = append(params, cursor)
	}

	var page cellsPage
	err := c.call(ctx, c.cfg.IndexerURL, "get_cells", &page, params...)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

// ListUnspent returns every live cell guarded by lock, following the
// indexer's cursor until a short page is returned.
func (c *Client) ListUnspent(ctx context.Context,
	lock cell.Script) ([]*cell.LiveCell, error) {

	var (
		cells  []*cell.LiveCell
		cursor string
	)
	for {
		page, err := c.cellsPage(ctx, lock, cursor)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Objects {
			live, err := obj.ToLiveCell()
			if err != nil {
				return nil, err
			}
			cells = append(cells, live)
		}

		if uint64(len(page.Objects)) < c.cfg.PageSize ||
			page.LastCursor == "" || page.LastCursor == cursor {

			break
		}
		cursor = page.LastCursor
	}

	log.Debugf("Found %d live cells for lock %v", len(cells), lock.Hash())

	return cells, nil
}

// SendTransaction submits a signed transaction. Node errors are returned as
// *LedgerRejection.
func (c *Client) SendTransaction(ctx context.Context,
	tx *cell.Transaction) (cell.Hash, error) {

	var txHash HexHash
	err := c.call(
		ctx, c.cfg.NodeURL, "send_transaction", &txHash,
		NewTransaction(tx), outputsValidatorPassthrough,
	)

	var rpcErr *RPCError
	switch {
	case errors.As(err, &rpcErr):
		return cell.Hash{}, NewLedgerRejection(rpcErr)

	case err != nil:
		return cell.Hash{}, err
	}

	return cell.Hash(txHash), nil
}
