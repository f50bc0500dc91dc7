// Package momo is the client for the hosted mobile-money payment gateway.
// The online payment path is present but disabled in the current
// deployment; the gateway is only constructed when ONLINE_PAYMENTS_ENABLED
// is set.
package momo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
	PartnerID string `json:"partnerId" mapstructure:"partner_id"`
	ClientID  string `json:"clientId" mapstructure:"client_id"`
	ClientKey string `json:"clientKey" mapstructure:"client_key"`
	HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`

	// WebhookSecretHash is the bcrypt hash the webhook shared secret is
	// verified against.
	WebhookSecretHash string `json:"webhookSecretHash" mapstructure:"webhook_secret_hash"`

	PNSubKey  string `json:"pn_subkey" mapstructure:"pn_subkey"`
	PNUUID    string `json:"pn_uuid" mapstructure:"pn_uuid"`
	PNChannel string `json:"pn_channel" mapstructure:"pn_channel"`
}

// Transaction is an asynchronous payment notification from the gateway.
type Transaction struct {
	Reference string          `json:"reference"`
	ChargeID  string          `json:"charge_id"`
	Status    string          `json:"status"` // success, failed
	Payer     string          `json:"payer"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

type Gateway struct {
	cfg *Config

	pn       *pubnub.PubNub
	listener *pubnub.Listener
	tranCh   chan *Transaction

	client *Client
}

// notification is the gateway's wire format for payment events.
type notification struct {
	Reference string          `json:"refNo"`
	ChargeID  string          `json:"chargeId"`
	Status    string          `json:"txnStatus"`
	Payer     string          `json:"sourceName"`
	Amount    decimal.Decimal `json:"txnAmount"`
	Currency  string          `json:"sourceCurrency"`
	CreatedAt string          `json:"txnDateTime"`
}

// New authenticates against the gateway and subscribes to its notification
// channel.
func New(ctx context.Context, cfg *Config) (*Gateway, error) {
	client := newClient(&ClientConfig{
		BaseURL:   cfg.BaseURL,
		PartnerID: cfg.PartnerID,
		ClientID:  cfg.ClientID,
		ClientKey: cfg.ClientKey,
		HMACKey:   cfg.HMACKey,
	})

	token, err := client.connect(ctx)
	if err != nil {
		return nil, err
	}
	client.setAccessToken(token)

	go client.notifyAccessTokenExpired(ctx)

	g := &Gateway{
		cfg:      cfg,
		listener: pubnub.NewListener(),
		client:   client,
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PNUUID))
	pnCfg.SubscribeKey = cfg.PNSubKey
	g.pn = pubnub.NewPubNub(pnCfg)
	g.pn.AddListener(g.listener)
	g.pn.Subscribe().Channels([]string{cfg.PNChannel}).Execute()

	go g.processNotifications(ctx)

	return g, nil
}

// SetTransactionChannel sets the channel notifications are delivered on.
func (g *Gateway) SetTransactionChannel(ch chan *Transaction) {
	g.tranCh = ch
}

func (g *Gateway) processNotifications(ctx context.Context) {
	for {
		select {
		case st := <-g.listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				slog.Info("momo: connected to gateway notification channel")
			case pubnub.PNReconnectedCategory:
				slog.Info("momo: reconnected to gateway notification channel")
			case pubnub.PNDisconnectedCategory:
				slog.Warn("momo: disconnected from gateway notification channel")
			default:
				slog.Debug("momo: notification channel status", "category", st.Category)
			}

		case message := <-g.listener.Message:
			raw, ok := message.Message.(string)
			if !ok {
				continue
			}

			var n notification
			if err := json.NewDecoder(strings.NewReader(raw)).Decode(&n); err != nil {
				slog.Error("momo: decode notification", "error", err)
				continue
			}

			tran, err := n.toDomain()
			if err != nil {
				slog.Error("momo: parse notification", "error", err)
				continue
			}
			if g.tranCh != nil {
				g.tranCh <- tran
			}

		case <-ctx.Done():
			g.pn.Unsubscribe().Channels([]string{g.cfg.PNChannel}).Execute()
			return
		}
	}
}

func (n *notification) toDomain() (*Transaction, error) {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", n.CreatedAt, time.Local)
	if err != nil {
		return nil, fmt.Errorf("momo: notification timestamp: %w", err)
	}

	return &Transaction{
		Reference: n.Reference,
		ChargeID:  n.ChargeID,
		Status:    n.Status,
		Payer:     n.Payer,
		Amount:    n.Amount,
		Currency:  n.Currency,
		CreatedAt: ts,
	}, nil
}

// ChargeRequest asks the gateway to charge a payer's wallet.
type ChargeRequest struct {
	Reference string          `json:"reference"`
	Phone     string          `json:"phone"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// CreateCharge submits a charge and returns the gateway charge id. The
// outcome arrives later on the transaction channel.
func (g *Gateway) CreateCharge(ctx context.Context, req *ChargeRequest) (string, error) {
	return g.client.createCharge(ctx, req)
}

// VerifyWebhookSecret checks a webhook shared secret against the configured
// bcrypt hash.
func (g *Gateway) VerifyWebhookSecret(secret string) bool {
	return CompareSecretHash(g.cfg.WebhookSecretHash, secret)
}
