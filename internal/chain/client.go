// Package chain is the Chain Client adapter: the facilitator's only window
// onto the BCH network, backed by Esplora-compatible REST providers
// (Blockstream/Mempool-style "GET /tx/{txid}", "GET /address/{addr}/utxo",
// "POST /tx").
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/ledgerengine"
)

// esploraTxOutput is one entry of an Esplora "GET /tx/{txid}" vout array.
type esploraTxOutput struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

type esploraTx struct {
	TxID   string            `json:"txid"`
	Vout   []esploraTxOutput `json:"vout"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

type esploraOutspend struct {
	Spent bool `json:"spent"`
}

type esploraAddressUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

// Output is one payment destination for a broadcast transaction.
type Output struct {
	Address   string
	AmountSat int64
}

// Client is the Esplora-backed Chain Client: it satisfies
// ledgerengine.ChainClient (ValidateUTXO) and the narrower interface the
// wallet declares for itself (ListUTXOs, Send), without the ledger engine
// importing this one.
type Client struct {
	httpClient      *http.Client
	providerURLs    []string
	rateLimiters    []*rateLimiter
	nextProvider    atomic.Uint64
	serverAddress   string
	reads           *coalescer
}

// NewClient builds a Chain Client rotating across providerURLs, rate
// limited per-provider, validating UTXOs against serverAddress (the
// facilitator's own receiving address per spec §6).
func NewClient(httpClient *http.Client, providerURLs []string, serverAddress string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.DefaultChainRequestTimeout}
	}
	limiters := make([]*rateLimiter, len(providerURLs))
	for i, url := range providerURLs {
		limiters[i] = newRateLimiter(url, config.ChainClientRateLimitRPS)
	}
	slog.Info("chain client created", "providerCount", len(providerURLs), "providers", providerURLs)
	return &Client{
		httpClient:    httpClient,
		providerURLs:  providerURLs,
		rateLimiters:  limiters,
		serverAddress: serverAddress,
		reads:         newCoalescer(config.ChainReadCoalesceWindow),
	}
}

// nextRead rotates to the next provider/limiter pair for a read request.
func (c *Client) nextRead() (string, *rateLimiter) {
	idx := int(c.nextProvider.Add(1)-1) % len(c.providerURLs)
	return c.providerURLs[idx], c.rateLimiters[idx]
}

// ValidateUTXO implements ledgerengine.ChainClient. It never returns a Go
// error for a UTXO that is simply absent, unconfirmed, spent, or
// misdirected — those are ordinary InvalidReason outcomes. A Go error
// means the chain could not be consulted at all.
func (c *Client) ValidateUTXO(ctx context.Context, txid string, vout uint32) (ledgerengine.ChainValidation, error) {
	key := fmt.Sprintf("validate:%s:%d", txid, vout)
	v, err := c.reads.do(ctx, key, func() (any, error) {
		return c.validateUTXOUncoalesced(ctx, txid, vout)
	})
	if err != nil {
		return ledgerengine.ChainValidation{}, err
	}
	return v.(ledgerengine.ChainValidation), nil
}

func (c *Client) validateUTXOUncoalesced(ctx context.Context, txid string, vout uint32) (ledgerengine.ChainValidation, error) {
	tx, err := withRetry(ctx, func() (esploraTx, error) { return c.fetchTx(ctx, txid) })
	if err != nil {
		return ledgerengine.ChainValidation{}, fmt.Errorf("fetch tx %s: %w", txid, err)
	}
	if tx.TxID == "" {
		return ledgerengine.ChainValidation{IsValid: false, InvalidReason: config.ReasonUTXONotFound}, nil
	}
	if int(vout) >= len(tx.Vout) {
		return ledgerengine.ChainValidation{IsValid: false, InvalidReason: config.ReasonUTXONotFound}, nil
	}
	if !tx.Status.Confirmed {
		return ledgerengine.ChainValidation{IsValid: false, InvalidReason: config.ReasonUTXONotFound}, nil
	}

	out := tx.Vout[vout]
	if out.ScriptPubKeyAddress != c.serverAddress {
		return ledgerengine.ChainValidation{IsValid: false, InvalidReason: config.ReasonInvalidReceiverAddress}, nil
	}

	spent, err := withRetry(ctx, func() (esploraOutspend, error) { return c.fetchOutspend(ctx, txid, vout) })
	if err != nil {
		return ledgerengine.ChainValidation{}, fmt.Errorf("fetch outspend %s:%d: %w", txid, vout, err)
	}
	if spent.Spent {
		return ledgerengine.ChainValidation{IsValid: false, InvalidReason: config.ReasonUTXONotFound}, nil
	}

	return ledgerengine.ChainValidation{
		IsValid:         true,
		UTXOAmountSat:   out.Value,
		ReceiverAddress: out.ScriptPubKeyAddress,
	}, nil
}

func (c *Client) fetchTx(ctx context.Context, txid string) (esploraTx, error) {
	baseURL, rl := c.nextRead()
	if err := rl.wait(ctx); err != nil {
		return esploraTx{}, err
	}
	url := fmt.Sprintf("%s/tx/%s", baseURL, txid)
	var out esploraTx
	if err := c.getJSON(ctx, url, &out); err != nil {
		if isBadStatus(err) {
			// Esplora answers 404 for an unknown txid — that is a clean
			// "not found," not a chain-client failure.
			if statusCodeOf(err) == http.StatusNotFound {
				return esploraTx{}, nil
			}
			return esploraTx{}, err
		}
		return esploraTx{}, config.NewTransientError(err)
	}
	return out, nil
}

func (c *Client) fetchOutspend(ctx context.Context, txid string, vout uint32) (esploraOutspend, error) {
	baseURL, rl := c.nextRead()
	if err := rl.wait(ctx); err != nil {
		return esploraOutspend{}, err
	}
	url := fmt.Sprintf("%s/tx/%s/outspend/%d", baseURL, txid, vout)
	var out esploraOutspend
	if err := c.getJSON(ctx, url, &out); err != nil {
		if isBadStatus(err) {
			return esploraOutspend{}, err
		}
		return esploraOutspend{}, config.NewTransientError(err)
	}
	return out, nil
}

// GetBalance sums confirmed UTXO value at address across one provider.
func (c *Client) GetBalance(ctx context.Context, address string) (int64, error) {
	key := fmt.Sprintf("balance:%s", address)
	v, err := c.reads.do(ctx, key, func() (any, error) {
		return withRetry(ctx, func() (int64, error) { return c.getBalanceUncoalesced(ctx, address) })
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (c *Client) getBalanceUncoalesced(ctx context.Context, address string) (int64, error) {
	baseURL, rl := c.nextRead()
	if err := rl.wait(ctx); err != nil {
		return 0, err
	}
	url := fmt.Sprintf("%s/address/%s/utxo", baseURL, address)
	var raw []esploraAddressUTXO
	if err := c.getJSON(ctx, url, &raw); err != nil {
		if isBadStatus(err) {
			return 0, err
		}
		return 0, config.NewTransientError(err)
	}
	var total int64
	for _, u := range raw {
		if u.Status.Confirmed {
			total += u.Value
		}
	}
	return total, nil
}

// UTXO is a confirmed spendable output, as needed by the facilitator's own
// wallet to fund a settlement broadcast.
type UTXO struct {
	TxID  string
	Vout  uint32
	Value int64
}

// ListUTXOs returns the confirmed UTXOs at address, for the facilitator's
// own wallet to select inputs from.
func (c *Client) ListUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	key := fmt.Sprintf("listutxos:%s", address)
	v, err := c.reads.do(ctx, key, func() (any, error) {
		return withRetry(ctx, func() ([]UTXO, error) { return c.listUTXOsUncoalesced(ctx, address) })
	})
	if err != nil {
		return nil, err
	}
	return v.([]UTXO), nil
}

func (c *Client) listUTXOsUncoalesced(ctx context.Context, address string) ([]UTXO, error) {
	baseURL, rl := c.nextRead()
	if err := rl.wait(ctx); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/address/%s/utxo", baseURL, address)
	var raw []esploraAddressUTXO
	if err := c.getJSON(ctx, url, &raw); err != nil {
		if isBadStatus(err) {
			return nil, err
		}
		return nil, config.NewTransientError(err)
	}
	utxos := make([]UTXO, 0, len(raw))
	for _, u := range raw {
		if u.Status.Confirmed {
			utxos = append(utxos, UTXO{TxID: u.TxID, Vout: u.Vout, Value: u.Value})
		}
	}
	return utxos, nil
}

// Send broadcasts a raw signed transaction, trying providers in order.
// Retries are never applied here — a failed broadcast surfaces directly,
// per the facilitator's retry policy.
func (c *Client) Send(ctx context.Context, rawHex string) (string, error) {
	slog.Info("broadcasting bch transaction", "hexLength", len(rawHex))

	var lastErr error
	for i, baseURL := range c.providerURLs {
		txid, err := c.broadcastToProvider(ctx, rawHex, baseURL)
		if err == nil {
			slog.Info("broadcast successful", "provider", baseURL, "txid", txid)
			return txid, nil
		}
		lastErr = err

		if isBadStatus(err) {
			slog.Error("broadcast rejected", "provider", baseURL, "error", err)
			return "", fmt.Errorf("%w: %s", config.ErrBroadcastFailed, err)
		}
		slog.Warn("broadcast failed, trying next provider", "provider", baseURL, "providerIndex", i, "error", err)
	}
	return "", fmt.Errorf("%w: all providers failed: %s", config.ErrBroadcastFailed, lastErr)
}

func (c *Client) broadcastToProvider(ctx context.Context, rawHex, baseURL string) (string, error) {
	url := baseURL + "/tx"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(rawHex))
	if err != nil {
		return "", fmt.Errorf("create broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("broadcast request to %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read broadcast response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return "", &badStatusError{provider: baseURL, statusCode: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("broadcast HTTP %d from %s: %s", resp.StatusCode, baseURL, string(body))
	}

	return strings.TrimSpace(string(body)), nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &badStatusError{provider: url, statusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &badStatusError{provider: url, statusCode: resp.StatusCode, body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// withRetry retries a read up to config.ChainClientMaxRetries times after
// the first attempt (ChainClientMaxRetries+1 attempts in all) with linear
// backoff, but only for errors marked transient — a clean "not found" or a
// rejected request returns immediately.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; attempt <= config.ChainClientMaxRetries; attempt++ {
		result, err = fn()
		if err == nil || !config.IsTransient(err) {
			return result, err
		}
		delay := config.GetRetryAfter(err)
		if delay == 0 {
			delay = config.ChainClientRetryBaseDelay * time.Duration(attempt+1)
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return result, err
}
