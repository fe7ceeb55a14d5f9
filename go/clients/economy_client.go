package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcdev12/ladders/go/internal/gameerr"
)

// EconomyClient talks to the external wallet service.
type EconomyClient struct {
	*BaseClient
}

func NewEconomyClient(baseURL, apiKey string) *EconomyClient {
	client := &EconomyClient{
		BaseClient: NewBaseClient(baseURL),
	}
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	client.SetHeader("Accept", "application/json")
	return client
}

type balanceResponse struct {
	PlayerID string `json:"player_id"`
	Balance  int64  `json:"balance"`
}

type transferRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

func walletPath(playerID, action string) string {
	return "/v1/wallets/" + url.PathEscape(playerID) + "/" + action
}

func (c *EconomyClient) Balance(ctx context.Context, playerID string) (int64, error) {
	body, err := c.Get(ctx, walletPath(playerID, "balance"))
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", mapEconomyError(err))
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return resp.Balance, nil
}

func (c *EconomyClient) Debit(ctx context.Context, playerID string, amount int64, ref string) error {
	return c.transfer(ctx, playerID, "debit", amount, ref)
}

func (c *EconomyClient) Credit(ctx context.Context, playerID string, amount int64, ref string) error {
	return c.transfer(ctx, playerID, "credit", amount, ref)
}

func (c *EconomyClient) transfer(ctx context.Context, playerID, action string, amount int64, ref string) error {
	payload, err := json.Marshal(transferRequest{Amount: amount, Reference: ref})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", action, err)
	}

	headers := map[string]string{"Idempotency-Key": action + ":" + playerID + ":" + ref}
	if _, err := c.Post(ctx, walletPath(playerID, action), bytes.NewReader(payload), headers); err != nil {
		return fmt.Errorf("failed to %s wallet: %w", action, mapEconomyError(err))
	}
	return nil
}

func mapEconomyError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.StatusCode {
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", gameerr.ErrInsufficientFunds, se.Body)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", gameerr.ErrPlayerNotFound, se.Body)
	default:
		return err
	}
}
