package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"go.uber.org/zap"
)

const defaultMouserURL = "https://api.mouser.com"

// Mouser 分销商搜索适配器（API key鉴权）
type Mouser struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMouser 创建Mouser适配器
func NewMouser(apiKey string, logger *zap.Logger) *Mouser {
	return &Mouser{
		apiKey:  apiKey,
		baseURL: defaultMouserURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (m *Mouser) ID() string   { return IDMouser }
func (m *Mouser) Name() string { return "Mouser" }

// IsConfigured key为空即未配置
func (m *Mouser) IsConfigured() bool { return m.apiKey != "" }

func (m *Mouser) SetupInstructions() string {
	return "Request a Search API key at mouser.com/api-hub, then set MOUSER_API_KEY."
}

// mouserSearchResponse Mouser关键字搜索响应（只取用到的字段）
type mouserSearchResponse struct {
	SearchResults struct {
		Parts []mouserPart `json:"Parts"`
	} `json:"SearchResults"`
}

type mouserPart struct {
	MouserPartNumber       string `json:"MouserPartNumber"`
	ManufacturerPartNumber string `json:"ManufacturerPartNumber"`
	Manufacturer           string `json:"Manufacturer"`
	Description            string `json:"Description"`
	DataSheetUrl           string `json:"DataSheetUrl"`
	ProductDetailUrl       string `json:"ProductDetailUrl"`
	ImagePath              string `json:"ImagePath"`
	// 专用库存数字段，缺失时从Availability文本里抠数字
	AvailabilityInStock string `json:"AvailabilityInStock"`
	Availability        string `json:"Availability"` // 如 "15000 In Stock"
	PriceBreaks         []struct {
		Quantity int    `json:"Quantity"`
		Price    string `json:"Price"` // 可能带货币符号前缀，如 "$0.12"
		Currency string `json:"Currency"`
	} `json:"PriceBreaks"`
}

// Search 搜索Mouser产品目录
// 未配置直接返回空；任何失败降级为空结果
func (m *Mouser) Search(ctx context.Context, q entity.Query) []entity.Part {
	if !m.IsConfigured() {
		m.logger.Info("mouser adapter not configured, skipping search")
		return nil
	}
	keyword := q.DistributorKeyword()
	if keyword == "" {
		return nil
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"SearchByKeywordRequest": map[string]interface{}{
			"keyword": keyword,
			"records": q.EffectiveLimit(),
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/api/v1/search/keyword?apiKey="+m.apiKey, bytes.NewReader(reqBody))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Warn("mouser search request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		m.logger.Warn("mouser search returned non-OK status",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil
	}

	var result mouserSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		m.logger.Warn("mouser response decode failed", zap.Error(err))
		return nil
	}

	parts := make([]entity.Part, 0, len(result.SearchResults.Parts))
	for _, mp := range result.SearchResults.Parts {
		parts = append(parts, m.mapPart(mp, q))
	}
	return parts
}

func (m *Mouser) mapPart(mp mouserPart, q entity.Query) entity.Part {
	p := entity.Part{
		Supplier:               m.Name(),
		Currency:               "USD",
		Value:                  q.Value,
		Footprint:              q.Footprint,
		SupplierPartNumber:     mp.MouserPartNumber,
		Manufacturer:           mp.Manufacturer,
		ManufacturerPartNumber: mp.ManufacturerPartNumber,
		Description:            mp.Description,
		ProductURL:             mp.ProductDetailUrl,
		DatasheetURL:           mp.DataSheetUrl,
		ImageURL:               mp.ImagePath,
	}

	// 库存：优先专用字段，兜底从可用性文本提取首段数字
	if n, ok := toInt(mp.AvailabilityInStock); ok && n > 0 {
		p.Stock = n
	} else {
		p.Stock = extractDigits(mp.Availability)
	}

	if len(mp.PriceBreaks) > 0 {
		p.Price = parsePrice(mp.PriceBreaks[0].Price)
	}
	return p
}
