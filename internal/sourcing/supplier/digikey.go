package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"go.uber.org/zap"
)

const (
	digikeyProductionURL = "https://api.digikey.com"
	digikeySandboxURL    = "https://sandbox-api.digikey.com"

	// token提前5分钟判定过期，避免在途请求撞上失效边界
	digikeyTokenMargin = 5 * time.Minute
)

// DigiKey 分销商搜索适配器（OAuth2 client credentials）
// token在适配器实例内缓存整个进程生命周期，过期前自动刷新；
// 读写锁+双重检查保证并发搜索不会读到写了一半的缓存，
// 并发刷新时最后写入者生效（token可互换，这无害）
type DigiKey struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	logger       *zap.Logger

	mu          sync.RWMutex
	tokenCache  string
	tokenExpire time.Time
}

// NewDigiKey 创建DigiKey适配器，sandbox为真时走沙箱环境
func NewDigiKey(clientID, clientSecret string, sandbox bool, logger *zap.Logger) *DigiKey {
	baseURL := digikeyProductionURL
	if sandbox {
		baseURL = digikeySandboxURL
	}
	return &DigiKey{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (d *DigiKey) ID() string   { return IDDigiKey }
func (d *DigiKey) Name() string { return "DigiKey" }

// IsConfigured 两个凭据缺一不可
func (d *DigiKey) IsConfigured() bool {
	return d.clientID != "" && d.clientSecret != ""
}

func (d *DigiKey) SetupInstructions() string {
	return "Register an app at developer.digikey.com, then set DIGIKEY_CLIENT_ID and DIGIKEY_CLIENT_SECRET. Set DIGIKEY_SANDBOX=true to use the sandbox API."
}

// accessToken 获取bearer token，优先用缓存
// 双重检查锁定：读锁快速路径，失效后写锁内再查一次，
// 其他goroutine可能已经刷新过了
func (d *DigiKey) accessToken(ctx context.Context) (string, error) {
	d.mu.RLock()
	if d.tokenCache != "" && time.Now().Before(d.tokenExpire) {
		token := d.tokenCache
		d.mu.RUnlock()
		return token, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tokenCache != "" && time.Now().Before(d.tokenExpire) {
		return d.tokenCache, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", d.clientID)
	form.Set("client_secret", d.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"` // 秒
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}

	d.tokenCache = result.AccessToken
	d.tokenExpire = time.Now().Add(time.Duration(result.ExpiresIn)*time.Second - digikeyTokenMargin)

	return result.AccessToken, nil
}

// digikeySearchResponse DigiKey关键字搜索响应（只取用到的字段）
// 价格藏在第一个变体的第一档阶梯价里，制造商是嵌套对象，
// 规格参数是{name,value}对的列表
type digikeySearchResponse struct {
	Products []digikeyProduct `json:"Products"`
}

type digikeyProduct struct {
	Description struct {
		ProductDescription  string `json:"ProductDescription"`
		DetailedDescription string `json:"DetailedDescription"`
	} `json:"Description"`
	Manufacturer struct {
		Name string `json:"Name"`
	} `json:"Manufacturer"`
	ManufacturerProductNumber string `json:"ManufacturerProductNumber"`
	QuantityAvailable         int64  `json:"QuantityAvailable"`
	ProductUrl                string `json:"ProductUrl"`
	DatasheetUrl              string `json:"DatasheetUrl"`
	PhotoUrl                  string `json:"PhotoUrl"`
	ProductVariations         []struct {
		DigiKeyProductNumber string `json:"DigiKeyProductNumber"`
		PackageType          struct {
			Name string `json:"Name"`
		} `json:"PackageType"`
		StandardPricing []struct {
			BreakQuantity int64   `json:"BreakQuantity"`
			UnitPrice     float64 `json:"UnitPrice"`
		} `json:"StandardPricing"`
	} `json:"ProductVariations"`
	Parameters []struct {
		ParameterText string `json:"ParameterText"`
		ValueText     string `json:"ValueText"`
	} `json:"Parameters"`
}

// Search 搜索DigiKey产品目录
// 未配置直接返回空，不发起任何网络调用；
// token获取、请求、解析的任何失败都降级为空结果
func (d *DigiKey) Search(ctx context.Context, q entity.Query) []entity.Part {
	if !d.IsConfigured() {
		d.logger.Info("digikey adapter not configured, skipping search")
		return nil
	}
	keyword := q.DistributorKeyword()
	if keyword == "" {
		return nil
	}

	token, err := d.accessToken(ctx)
	if err != nil {
		d.logger.Warn("digikey token fetch failed", zap.Error(err))
		return nil
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"Keywords": keyword,
		"Limit":    q.EffectiveLimit(),
		"Offset":   0,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/products/v4/search/keyword", bytes.NewReader(reqBody))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-DIGIKEY-Client-Id", d.clientID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("digikey search request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		d.logger.Warn("digikey search returned non-OK status",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil
	}

	var result digikeySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		d.logger.Warn("digikey response decode failed", zap.Error(err))
		return nil
	}

	parts := make([]entity.Part, 0, len(result.Products))
	for _, prod := range result.Products {
		parts = append(parts, d.mapProduct(prod, q))
	}
	return parts
}

func (d *DigiKey) mapProduct(prod digikeyProduct, q entity.Query) entity.Part {
	p := entity.Part{
		Supplier:               d.Name(),
		Currency:               "USD",
		Value:                  q.Value,
		Footprint:              q.Footprint,
		Manufacturer:           prod.Manufacturer.Name,
		ManufacturerPartNumber: prod.ManufacturerProductNumber,
		Description:            prod.Description.ProductDescription,
		ProductURL:             prod.ProductUrl,
		DatasheetURL:           prod.DatasheetUrl,
		ImageURL:               prod.PhotoUrl,
	}
	if p.Description == "" {
		p.Description = prod.Description.DetailedDescription
	}
	if prod.QuantityAvailable > 0 {
		p.Stock = int(prod.QuantityAvailable)
	}

	// 单价取第一个变体的第一档阶梯价
	if len(prod.ProductVariations) > 0 {
		v := prod.ProductVariations[0]
		p.SupplierPartNumber = v.DigiKeyProductNumber
		p.Package = v.PackageType.Name
		if len(v.StandardPricing) > 0 && v.StandardPricing[0].UnitPrice > 0 {
			p.Price = v.StandardPricing[0].UnitPrice
		}
	}

	if len(prod.Parameters) > 0 {
		p.Specs = make(map[string]string, len(prod.Parameters))
		for _, param := range prod.Parameters {
			if param.ParameterText != "" && param.ValueText != "" {
				p.Specs[param.ParameterText] = param.ValueText
			}
		}
	}
	return p
}
