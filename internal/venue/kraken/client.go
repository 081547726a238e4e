// Package kraken implements the transport.VenueClient surface against
// Kraken's REST API: public order book depth for market data, and signed
// private AddOrder/CancelOrder calls for trading, following the teacher's
// internal/providers/kraken request/response idiom (KrakenResponse envelope,
// makeRequest helper) extended with the private signing the teacher's
// read-only scanner client never needed.
package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/cryptorun-execcore/internal/errs"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// Response is Kraken's standard API envelope.
type Response struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Client talks to Kraken's public and private REST endpoints. It implements
// transport.VenueClient directly; rate limiting and circuit breaking are the
// caller's (transport.Transport's) responsibility, not this client's.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  []byte // base64-decoded
	nonce      func() int64
}

// Config bundles the credentials and connection settings for a Client.
type Config struct {
	BaseURL        string
	APIKey         string
	APISecret      string // base64, as issued by Kraken
	RequestTimeout time.Duration
}

// New builds a Client, decoding the base64 API secret once at construction
// rather than on every signed request.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.kraken.com"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	secret, err := base64.StdEncoding.DecodeString(cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("decode kraken api secret: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  secret,
		nonce:      func() int64 { return time.Now().UnixNano() / int64(time.Millisecond) },
	}, nil
}

// FetchMarketData retrieves order book depth for symbol and maps it onto the
// execution core's MarketData shape. Kraken has no recent-trade tape in the
// depth response, so RecentTrades is left for a separate tape feed (out of
// scope for this client).
func (c *Client) FetchMarketData(ctx context.Context, symbol string) (*types.MarketData, error) {
	pair := toKrakenPair(symbol)
	q := url.Values{"pair": {pair}, "count": {"25"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/0/public/Depth?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build depth request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var depth map[string]struct {
		Bids [][3]interface{} `json:"bids"`
		Asks [][3]interface{} `json:"asks"`
	}
	if err := json.Unmarshal(resp.Result, &depth); err != nil {
		return nil, fmt.Errorf("unmarshal depth result: %w", err)
	}

	book, ok := depth[pair]
	if !ok {
		for _, v := range depth {
			book = v
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("no depth data returned for pair %s", pair)
	}

	return &types.MarketData{
		Symbol:    symbol,
		Venue:     "kraken",
		Timestamp: time.Now(),
		Bids:      levelsFrom(book.Bids),
		Asks:      levelsFrom(book.Asks),
	}, nil
}

// PlaceOrder submits a signed AddOrder request and applies Kraken's
// synchronous response onto order: a post-only (maker) order that Kraken
// rejects for crossing the book is recognised here by a string check on
// Kraken's error text, since Kraken's error taxonomy is untyped strings, and
// returned as *errs.PostOnlyCrossed, which the router matches with errors.As.
func (c *Client) PlaceOrder(ctx context.Context, order *types.Order) error {
	form := url.Values{
		"pair":      {toKrakenPair(order.Symbol)},
		"type":      {krakenSide(order.Side)},
		"ordertype": {krakenOrderType(order.Type)},
		"volume":    {order.Size.String()},
	}
	if order.Type == types.OrderTypeMaker {
		form.Set("price", order.Price.String())
		form.Set("oflags", "post")
	} else {
		form.Set("price", order.Price.String())
		form.Set("timeinforce", "IOC")
	}

	var result struct {
		TxID []string `json:"txid"`
	}
	if err := c.signedPost(ctx, "/0/private/AddOrder", form, &result); err != nil {
		if order.Type == types.OrderTypeMaker && isPostOnlyCrossed(err) {
			return &errs.PostOnlyCrossed{Symbol: order.Symbol}
		}
		return err
	}
	if len(result.TxID) > 0 {
		order.ID = result.TxID[0]
	}
	return nil
}

// CancelOrder submits a signed CancelOrder request for order.ID.
func (c *Client) CancelOrder(ctx context.Context, order *types.Order) error {
	form := url.Values{"txid": {order.ID}}
	var result struct {
		Count int `json:"count"`
	}
	return c.signedPost(ctx, "/0/private/CancelOrder", form, &result)
}

func (c *Client) signedPost(ctx context.Context, path string, form url.Values, out interface{}) error {
	nonce := strconv.FormatInt(c.nonce(), 10)
	form.Set("nonce", nonce)
	body := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build signed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", c.sign(path, nonce, body))

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", path, err)
		}
	}
	return nil
}

// sign computes Kraken's API-Sign header: HMAC-SHA512 of the URI path plus
// SHA256(nonce + POST data), keyed by the base64-decoded API secret.
func (c *Client) sign(path, nonce, body string) string {
	shaSum := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, c.apiSecret)
	mac.Write([]byte(path))
	mac.Write(shaSum[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(req *http.Request) (*Response, error) {
	req.Header.Set("Accept", "application/json")
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kraken request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read kraken response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken http %d: %s", httpResp.StatusCode, string(raw))
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal kraken response: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken api error: %v", resp.Error)
	}
	return &resp, nil
}

func levelsFrom(raw [][3]interface{}) []types.Level {
	levels := make([]types.Level, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		priceStr, _ := r[0].(string)
		sizeStr, _ := r[1].(string)
		price, err := types.Parse(priceStr)
		if err != nil {
			continue
		}
		size, err := types.Parse(sizeStr)
		if err != nil {
			continue
		}
		levels = append(levels, types.Level{Price: price, Size: size})
	}
	return levels
}

func toKrakenPair(symbol string) string {
	return strings.ReplaceAll(symbol, "-", "")
}

func krakenSide(side types.Side) string {
	if side == types.SideBuy {
		return "buy"
	}
	return "sell"
}

// krakenOrderType maps both order types onto Kraken's "limit" ordertype: a
// maker order adds "oflags=post", an IOC order adds "timeinforce=IOC" with
// the same price field, since Kraken has no "market" ordertype that also
// accepts a bounded slippage price.
func krakenOrderType(t types.OrderType) string {
	return "limit"
}

// postOnlyCrossedSubstr is the fragment Kraken's AddOrder response includes
// when a post-only order would have crossed the book.
const postOnlyCrossedSubstr = "Post only order would get filled immediately"

func isPostOnlyCrossed(err error) bool {
	return err != nil && strings.Contains(err.Error(), postOnlyCrossedSubstr)
}
