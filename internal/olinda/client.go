// Package olinda talks to the Banco Central do Brasil Olinda open-data API.
// The API is authoritative but unreliable; every transport, status or decode
// problem collapses into a single fetch failure so callers never mistake a
// broken fetch for an empty result.
package olinda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

const timeFilterLayout = "2006-01-02T15:04:05Z"

// Client fetches key and transaction collections from the Olinda endpoints.
type Client struct {
	logger          *zap.Logger
	httpClient      *http.Client
	keysURL         string
	transactionsURL string
	userAgent       string
}

// NewClient creates a client for the configured endpoints.
func NewClient(cfg config.SourceConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:          logger,
		httpClient:      &http.Client{Timeout: timeout},
		keysURL:         cfg.KeysURL,
		transactionsURL: cfg.TransactionsURL,
		userAgent:       cfg.UserAgent,
	}
}

// Olinda wraps every collection in a "value" field. Items are kept raw so the
// original payload can be stored verbatim.
type envelope struct {
	Value []json.RawMessage `json:"value"`
}

type keyPayload struct {
	Chave       string `json:"chave"`
	Tipo        string `json:"tipo"`
	Titular     string `json:"titular"`
	Instituicao string `json:"instituicao"`
	DataCriacao string `json:"dataCriacao"`
}

type transactionPayload struct {
	EndToEndID       string          `json:"endToEndId"`
	ChaveOrigem      *string         `json:"chaveOrigem"`
	ChaveDestino     *string         `json:"chaveDestino"`
	Valor            float64         `json:"valor"`
	Horario          string          `json:"horario"`
	Situacao         string          `json:"situacao"`
	InfoOrigem       json.RawMessage `json:"infoOrigem"`
	InfoDestino      json.RawMessage `json:"infoDestino"`
	ModalidadeAgente string          `json:"modalidadeAgente"`
}

// FetchAllKeys fetches the complete current key set.
func (c *Client) FetchAllKeys(ctx context.Context) ([]store.KeyRecord, error) {
	params := url.Values{}
	params.Set("$format", "json")

	items, err := c.fetch(ctx, c.keysURL, params)
	if err != nil {
		return nil, err
	}

	records := make([]store.KeyRecord, 0, len(items))
	for _, item := range items {
		var payload keyPayload
		if err := json.Unmarshal(item, &payload); err != nil {
			return nil, fmt.Errorf("%w: malformed key item: %v", common.ErrFetchFailed, err)
		}
		records = append(records, store.KeyRecord{
			Key:         payload.Chave,
			KeyType:     payload.Tipo,
			OwnerLabel:  payload.Titular,
			Institution: payload.Instituicao,
			CreatedAt:   parseTime(payload.DataCriacao),
			Status:      "ACTIVE",
		})
	}
	return records, nil
}

// FetchTransactions fetches transactions whose occurrence time falls in
// [from, to] inclusive. The source orders them descending by occurrence time;
// callers must not rely on that order for correctness.
func (c *Client) FetchTransactions(ctx context.Context, from, to time.Time) ([]store.TransactionRecord, error) {
	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("horario ge %s and horario le %s",
		from.UTC().Format(timeFilterLayout), to.UTC().Format(timeFilterLayout)))
	params.Set("$format", "json")
	params.Set("$orderby", "horario desc")

	items, err := c.fetch(ctx, c.transactionsURL, params)
	if err != nil {
		return nil, err
	}

	records := make([]store.TransactionRecord, 0, len(items))
	for _, item := range items {
		var payload transactionPayload
		if err := json.Unmarshal(item, &payload); err != nil {
			return nil, fmt.Errorf("%w: malformed transaction item: %v", common.ErrFetchFailed, err)
		}
		records = append(records, store.TransactionRecord{
			EndToEndID:    payload.EndToEndID,
			SourceKey:     payload.ChaveOrigem,
			DestKey:       payload.ChaveDestino,
			Amount:        payload.Valor,
			OccurredAt:    parseTime(payload.Horario),
			Status:        payload.Situacao,
			SourceInfo:    payload.InfoOrigem,
			DestInfo:      payload.InfoDestino,
			AgentModality: payload.ModalidadeAgente,
			RawPayload:    item,
		})
	}
	return records, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", common.ErrFetchFailed, resp.StatusCode, endpoint)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	return env.Value, nil
}

// parseTime is tolerant of the timestamp variants Olinda emits; an
// unparseable value yields the zero time and the record is stored anyway,
// with the verbatim payload preserving the original string.
func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
