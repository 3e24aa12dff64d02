package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
	"go.uber.org/zap"
)

const (
	SteamDtBaseURL = "https://sdt-api.ok-skins.com"
	KLinePath      = "/user/steam/category/v1/kline"
	FavoritePath   = "/user/collect/skin/v1/page"
	FolderListPath = "/user/collect/skin/v1/folder/list"

	favoritePageSize = 50
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
}

type Config struct {
	BaseURL      string        `yaml:"base_url" env:"STEAMDT_BASE_URL"`
	AccessToken  string        `yaml:"access_token" env:"STEAMDT_ACCESS_TOKEN"`
	Platform     string        `yaml:"platform" env:"PLATFORM"`
	DataType     int           `yaml:"data_type" env:"DATA_TYPE"`
	FolderIDs    []string      `yaml:"folder_ids" env:"FAV_LIST_ID" envSeparator:","`
	HistoryPages int           `yaml:"history_pages" env:"CATEGORY_MONTH"`
	PageDays     int           `yaml:"page_days" env:"CATEGORY_DAYS"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	PageDelayMin time.Duration `yaml:"page_delay_min"`
	PageDelayMax time.Duration `yaml:"page_delay_max"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:      SteamDtBaseURL,
		Platform:     "YOUPIN",
		DataType:     2,
		HistoryPages: 4,
		PageDays:     90,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryDelay:   5 * time.Second,
		PageDelayMin: 2 * time.Second,
		PageDelayMax: 5 * time.Second,
	}
}

// SteamDtClient talks to the steamdt market API.
type SteamDtClient struct {
	config  Config
	client  *http.Client
	logger  *zap.Logger
	timeNow func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewSteamDtClient(config Config, logger *zap.Logger) *SteamDtClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = SteamDtBaseURL
	}
	return &SteamDtClient{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		logger:  logger,
		timeNow: time.Now,
		sleep:   sleepCtx,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	ErrCode int             `json:"errorCode"`
	ErrMsg  string          `json:"errorMsg"`
	Data    json.RawMessage `json:"data"`
}

func (c *SteamDtClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://steamdt.com")
	req.Header.Set("Referer", "https://steamdt.com/")
	req.Header.Set("x-currency", "CNY")
	req.Header.Set("language", "zh_CN")
	if c.config.AccessToken != "" {
		req.Header.Set("access-token", c.config.AccessToken)
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// sendRequest performs the call with retries on 429/5xx and transport errors.
func (c *SteamDtClient) sendRequest(ctx context.Context, method, path string, query url.Values, payload any) (*apiResponse, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = b
	}

	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.config.RetryDelay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("Request failed", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if retryable(resp.StatusCode) {
			lastErr = fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
			c.logger.Warn("Retryable API status", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
		}

		var result apiResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if !result.Success {
			return nil, fmt.Errorf("API error %d: %s", result.ErrCode, result.ErrMsg)
		}
		return &result, nil
	}
	return nil, fmt.Errorf("request %s failed after %d attempts: %w", path, c.config.MaxRetries+1, lastErr)
}

// GetKLines fetches one page of k-lines ending at maxTime (unix seconds).
func (c *SteamDtClient) GetKLines(ctx context.Context, itemID string, maxTime int64) ([]any, error) {
	q := url.Values{}
	q.Set("timestamp", strconv.FormatInt(c.timeNow().UnixMilli(), 10))
	q.Set("type", strconv.Itoa(c.config.DataType))
	q.Set("maxTime", strconv.FormatInt(maxTime, 10))
	q.Set("typeVal", itemID)
	q.Set("platform", c.config.Platform)
	q.Set("specialStyle", "")

	resp, err := c.sendRequest(ctx, http.MethodGet, KLinePath, q, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Data))
	dec.UseNumber()
	var rows []any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode k-lines: %w", err)
	}
	return rows, nil
}

// GetKLineHistory walks back HistoryPages pages of PageDays each and stops at
// the first empty or all-zero page.
func (c *SteamDtClient) GetKLineHistory(ctx context.Context, itemID string) ([]any, error) {
	now := c.timeNow()
	var all []any
	for i := 0; i < c.config.HistoryPages; i++ {
		maxTime := now.AddDate(0, 0, -c.config.PageDays*i).Unix()
		rows, err := c.GetKLines(ctx, itemID, maxTime)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", i+1, itemID, err)
		}
		if len(rows) == 0 {
			c.logger.Debug("No more history", zap.String("item_id", itemID), zap.Int("page", i+1))
			break
		}
		if !hasPrices(rows) {
			c.logger.Warn("History page has only zero prices, stopping", zap.String("item_id", itemID), zap.Int("page", i+1))
			break
		}
		all = append(all, rows...)

		if i < c.config.HistoryPages-1 {
			if err := c.sleep(ctx, c.pageDelay()); err != nil {
				return nil, err
			}
		}
	}
	c.logger.Info("Fetched k-line history", zap.String("item_id", itemID), zap.Int("rows", len(all)))
	return all, nil
}

func hasPrices(rows []any) bool {
	for _, r := range rows {
		row, ok := r.([]any)
		if !ok {
			return true
		}
		for j := 1; j < len(row) && j < 5; j++ {
			switch v := row[j].(type) {
			case json.Number:
				if f, err := v.Float64(); err == nil && f > 0 {
					return true
				}
			case string:
				if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
					return true
				}
			case float64:
				if v > 0 {
					return true
				}
			}
		}
	}
	return false
}

func (c *SteamDtClient) pageDelay() time.Duration {
	lo, hi := c.config.PageDelayMin, c.config.PageDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

type favoritePage struct {
	Total json.Number `json:"total"`
	List  []struct {
		ItemID json.Number `json:"itemId"`
		Name   string      `json:"name"`
	} `json:"list"`
}

// GetFavoriteItems lists every item of the configured favourite folders.
func (c *SteamDtClient) GetFavoriteItems(ctx context.Context) ([]domain.FavoriteFolder, error) {
	names := c.folderNames(ctx)

	var folders []domain.FavoriteFolder
	for _, folderID := range c.config.FolderIDs {
		folder := domain.FavoriteFolder{ID: folderID, Name: names[folderID]}
		if folder.Name == "" {
			folder.Name = folderID
		}

		for page := 1; ; page++ {
			payload := map[string]any{
				"pageSize":  favoritePageSize,
				"pageNum":   page,
				"folder":    map[string]string{"folderId": folderID, "expected": ""},
				"platform":  c.config.Platform,
				"timestamp": c.timeNow().UnixMilli(),
			}
			resp, err := c.sendRequest(ctx, http.MethodPost, FavoritePath, nil, payload)
			if err != nil {
				return nil, fmt.Errorf("favourite folder %s page %d: %w", folderID, page, err)
			}

			dec := json.NewDecoder(bytes.NewReader(resp.Data))
			dec.UseNumber()
			var fp favoritePage
			if err := dec.Decode(&fp); err != nil {
				return nil, fmt.Errorf("decode favourite page: %w", err)
			}
			if len(fp.List) == 0 {
				break
			}
			for _, it := range fp.List {
				folder.Items = append(folder.Items, domain.Item{ID: it.ItemID.String(), Name: it.Name})
			}

			total, _ := fp.Total.Int64()
			pages := int((total + favoritePageSize - 1) / favoritePageSize)
			if page >= pages {
				break
			}
			if err := c.sleep(ctx, c.pageDelay()); err != nil {
				return nil, err
			}
		}
		c.logger.Info("Loaded favourite folder", zap.String("folder", folder.Name), zap.Int("items", len(folder.Items)))
		folders = append(folders, folder)
	}
	return folders, nil
}

// folderNames is best effort; folder ids are used when it fails.
func (c *SteamDtClient) folderNames(ctx context.Context) map[string]string {
	names := make(map[string]string)
	q := url.Values{}
	q.Set("timestamp", strconv.FormatInt(c.timeNow().UnixMilli(), 10))
	q.Set("platform", c.config.Platform)
	resp, err := c.sendRequest(ctx, http.MethodGet, FolderListPath, q, nil)
	if err != nil {
		c.logger.Warn("Failed to list favourite folders", zap.Error(err))
		return names
	}
	var list []struct {
		FolderID   string `json:"folderId"`
		FolderName string `json:"folderName"`
	}
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		c.logger.Warn("Failed to decode favourite folders", zap.Error(err))
		return names
	}
	for _, f := range list {
		names[f.FolderID] = f.FolderName
	}
	return names
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
