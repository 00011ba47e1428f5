package bingx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/ports"
)

const (
	defaultBaseURL = "https://open-api.bingx.com"

	klinesPath   = "/openApi/swap/v3/quote/klines"
	balancePath  = "/openApi/swap/v2/user/balance"
	orderPath    = "/openApi/swap/v2/trade/order"
	leveragePath = "/openApi/swap/v2/trade/leverage"

	apiKeyHeader = "X-BX-APIKEY"

	klineInterval = "5m"
)

// Client talks to the BingX perpetual-futures REST API. Public market data
// needs no credentials; the trading and account endpoints are signed per call
// with the user-supplied keys.
type Client struct {
	http   *resty.Client
	logger ports.Logger
}

// Config holds configuration specific to the BingX client adapter.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  ports.Logger
}

// New creates a new BingX client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for BingX client")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &Client{
		http:   httpClient,
		logger: cfg.Logger,
	}, nil
}

// sign returns the hex HMAC-SHA256 of the query string.
func sign(query, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// buildQuery sorts the parameters by key and URL-encodes the values.
// The signature is computed over exactly this string.
func buildQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+url.QueryEscape(params[k]))
	}
	return strings.Join(parts, "&")
}

// formatSymbol normalizes "BTC/USDT" style symbols to the BingX "BTC-USDT" form.
func formatSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type klineData struct {
	Open  string `json:"open"`
	High  string `json:"high"`
	Low   string `json:"low"`
	Close string `json:"close"`
	Time  int64  `json:"time"`
}

// FetchCandles retrieves recent 5m candles for the symbol, oldest first.
// BingX returns the newest candle first, so the slice is reversed.
func (c *Client) FetchCandles(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	op := "FetchCandles"

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   formatSymbol(symbol),
			"interval": klineInterval,
			"limit":    strconv.Itoa(limit),
		}).
		Get(klinesPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrConnectionFailed, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%s: %w: HTTP %d", op, ports.ErrConnectionFailed, resp.StatusCode())
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("%s: %w: BingX code %d: %s", op, ports.ErrUnknown, envelope.Code, envelope.Msg)
	}

	var raw []klineData
	if err := json.Unmarshal(envelope.Data, &raw); err != nil {
		return nil, fmt.Errorf("%s: decode klines: %w", op, err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		k := raw[i]
		ts := time.UnixMilli(k.Time).UTC()
		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Label:     ts.Format("15:04"),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
		})
	}
	return candles, nil
}

type balanceData struct {
	Balance struct {
		Asset            string `json:"asset"`
		Balance          string `json:"balance"`
		Equity           string `json:"equity"`
		AvailableMargin  string `json:"availableMargin"`
		UnrealizedProfit string `json:"unrealizedProfit"`
	} `json:"balance"`
}

// simulatedBalance is the deterministic payload used whenever the real balance
// cannot be fetched. The dashboard keeps working against these demo numbers.
func simulatedBalance() *domain.AccountBalance {
	return &domain.AccountBalance{
		Asset:           "USDT",
		Balance:         10000.00,
		Equity:          10150.25,
		AvailableMargin: 9500.00,
		UnrealizedPNL:   150.25,
		Simulated:       true,
	}
}

// FetchBalance retrieves the perpetual account balance. The returned balance
// is never nil: any network or auth failure degrades to the simulated payload
// with an error describing the reason for the event log.
func (c *Client) FetchBalance(ctx context.Context, creds ports.Credentials) (*domain.AccountBalance, error) {
	op := "FetchBalance"

	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	query := buildQuery(params)
	signature := sign(query, creds.SecretKey)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, creds.APIKey).
		Get(balancePath + "?" + query + "&signature=" + signature)
	if err != nil {
		c.logger.Warn(ctx, op+": balance request failed, falling back to simulated balance", map[string]interface{}{"error": err.Error()})
		return simulatedBalance(), fmt.Errorf("%w: %w", ports.ErrConnectionFailed, err)
	}
	if resp.StatusCode() != 200 {
		c.logger.Warn(ctx, op+": unexpected status, falling back to simulated balance", map[string]interface{}{"status": resp.StatusCode()})
		return simulatedBalance(), fmt.Errorf("%w: HTTP %d", ports.ErrConnectionFailed, resp.StatusCode())
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return simulatedBalance(), fmt.Errorf("%w: decode response: %w", ports.ErrUnknown, err)
	}
	if envelope.Code != 0 {
		msg := envelope.Msg
		if msg == "" {
			msg = fmt.Sprintf("BingX error code %d", envelope.Code)
		}
		c.logger.Warn(ctx, op+": API rejected request, falling back to simulated balance", map[string]interface{}{"code": envelope.Code, "msg": envelope.Msg})
		return simulatedBalance(), fmt.Errorf("%w: %s", ports.ErrAuthenticationFailed, msg)
	}

	var data balanceData
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data.Balance.Balance == "" {
		return simulatedBalance(), fmt.Errorf("%w: unexpected balance payload", ports.ErrUnknown)
	}

	asset := data.Balance.Asset
	if asset == "" {
		asset = "USDT"
	}
	return &domain.AccountBalance{
		Asset:           asset,
		Balance:         parseFloat(data.Balance.Balance),
		Equity:          parseFloat(data.Balance.Equity),
		AvailableMargin: parseFloat(data.Balance.AvailableMargin),
		UnrealizedPNL:   parseFloat(data.Balance.UnrealizedProfit),
		Simulated:       false,
	}, nil
}

type orderData struct {
	Order struct {
		OrderID json.Number `json:"orderId"`
	} `json:"order"`
	OrderID json.Number `json:"orderId"`
}

// PlaceOrder submits a limit order with attached TP/SL market triggers.
func (c *Client) PlaceOrder(ctx context.Context, creds ports.Credentials, req ports.PlacementRequest) (*ports.PlacementResult, error) {
	op := "PlaceOrder"

	side := "BUY"
	positionSide := "LONG"
	if req.Side == domain.Short {
		side = "SELL"
		positionSide = "SHORT"
	}

	takeProfit, _ := json.Marshal(map[string]interface{}{
		"type":        "TAKE_PROFIT_MARKET",
		"stopPrice":   req.TPPrice,
		"price":       req.TPPrice,
		"workingType": "MARK_PRICE",
	})
	stopLoss, _ := json.Marshal(map[string]interface{}{
		"type":        "STOP_MARKET",
		"stopPrice":   req.SLPrice,
		"price":       req.SLPrice,
		"workingType": "MARK_PRICE",
	})

	params := map[string]string{
		"symbol":       formatSymbol(req.Symbol),
		"side":         side,
		"positionSide": positionSide,
		"type":         "LIMIT",
		"price":        strconv.FormatFloat(req.Price, 'f', -1, 64),
		"quantity":     strconv.FormatFloat(req.AmountUSDT/req.Price, 'f', 4, 64),
		"takeProfit":   string(takeProfit),
		"stopLoss":     string(stopLoss),
		"timestamp":    strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	query := buildQuery(params)
	signature := sign(query, creds.SecretKey)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, creds.APIKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		Post(orderPath + "?" + query + "&signature=" + signature)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrConnectionFailed, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("%s: %w: BingX code %d: %s", op, ports.ErrOrderPlacementFailed, envelope.Code, envelope.Msg)
	}

	var data orderData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("%s: decode order payload: %w", op, err)
	}
	externalID := data.Order.OrderID.String()
	if externalID == "" {
		externalID = data.OrderID.String()
	}

	c.logger.Info(ctx, op+": order accepted by exchange", map[string]interface{}{
		"symbol":  req.Symbol,
		"orderId": externalID,
	})
	return &ports.PlacementResult{
		ExternalID: externalID,
		Message:    "order placed on BingX",
	}, nil
}

// SetLeverage updates the leverage for a symbol and side. Best effort:
// the session logs and continues on failure.
func (c *Client) SetLeverage(ctx context.Context, creds ports.Credentials, symbol string, side domain.OrderSide, leverage int) error {
	op := "SetLeverage"

	params := map[string]string{
		"symbol":    formatSymbol(symbol),
		"side":      string(side),
		"leverage":  strconv.Itoa(leverage),
		"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	query := buildQuery(params)
	signature := sign(query, creds.SecretKey)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, creds.APIKey).
		Post(leveragePath + "?" + query + "&signature=" + signature)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ports.ErrConnectionFailed, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("%s: %w: BingX code %d: %s", op, ports.ErrUnknown, envelope.Code, envelope.Msg)
	}
	return nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
