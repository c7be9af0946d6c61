// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vanplanner/VanLayoutMCP/internal/config"
	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/llm"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const (
	defaultLLMTimeout = 60 * time.Second
	llmCacheTTL       = 30 * time.Minute
	llmCacheMax       = 200
)

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	defaultModel  string
	readyState    string
	timeout       time.Duration

	cache   *LLMCache
	metrics *utils.LayoutMetrics
	logger  *utils.Logger
}

// LLMCache 缓存相同提示的响应
type LLMCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

// CacheEntry 缓存条目
type CacheEntry struct {
	Response  *llm.CompletionResponse
	CreatedAt time.Time
}

// LLMStatus is the public view of the provider state.
type LLMStatus struct {
	Ready     bool     `json:"ready"`
	Provider  string   `json:"provider"`
	Model     string   `json:"model,omitempty"`
	State     string   `json:"state"`
	Providers []string `json:"available_providers"`
}

// NewLLMService 根据配置创建LLM服务；未配置时返回未就绪的服务而不是错误
func NewLLMService(cfg *config.AppConfig, metrics *utils.LayoutMetrics) *LLMService {
	service := createBaseLLMService(metrics)
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service
	}
	if cfg.LLMTimeoutSeconds > 0 {
		service.timeout = time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	}
	service.providerName = cfg.LLMProvider

	if cfg.LLMProvider == "" || cfg.LLMConfig["api_key"] == "" {
		service.readyState = "API key not configured"
		return service
	}

	if err := service.UpdateProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		service.logger.Warn("LLM provider initialization failed", map[string]interface{}{
			"provider": cfg.LLMProvider,
			"error":    err.Error(),
		})
	}
	return service
}

// NewLLMServiceWithProvider wraps an already initialised provider.
func NewLLMServiceWithProvider(name string, provider llm.Provider, metrics *utils.LayoutMetrics) *LLMService {
	service := createBaseLLMService(metrics)
	service.provider = provider
	service.providerName = name
	service.readyState = "Ready"
	return service
}

// createBaseLLMService 创建基础LLM服务实例
func createBaseLLMService(metrics *utils.LayoutMetrics) *LLMService {
	return &LLMService{
		readyState: "Uninitialized",
		timeout:    defaultLLMTimeout,
		cache:      newLLMCache(),
		metrics:    metrics,
		logger:     utils.GetLogger(),
	}
}

func newLLMCache() *LLMCache {
	return &LLMCache{
		cache:      make(map[string]*CacheEntry),
		expiration: llmCacheTTL,
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil
}

// Status 返回服务状态
func (s *LLMService) Status() LLMStatus {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return LLMStatus{
		Ready:     s.provider != nil,
		Provider:  s.providerName,
		Model:     s.defaultModel,
		State:     s.readyState,
		Providers: llm.ListProviders(),
	}
}

// GetProviderName returns the configured provider key.
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider 更新LLM服务的提供商，并清空缓存
func (s *LLMService) UpdateProvider(providerName string, cfg map[string]string) error {
	provider, err := llm.GetProvider(providerName, cfg)
	if err != nil {
		s.providerMutex.Lock()
		s.provider = nil
		s.providerName = providerName
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return apperrors.NewValidationError(fmt.Sprintf("cannot configure LLM provider %q", providerName), err)
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()
	s.provider = provider
	s.providerName = providerName
	s.defaultModel = cfg["default_model"]
	s.readyState = "Ready"
	s.cache = newLLMCache()

	s.logger.Info("LLM provider configured", map[string]interface{}{
		"provider": providerName,
		"model":    s.defaultModel,
	})
	return nil
}

// generateCacheKey 生成缓存键
func generateCacheKey(providerName string, req llm.CompletionRequest) string {
	hashInput := fmt.Sprintf("%s:::%s:::%s:::%s:::%.2f",
		req.Prompt, req.SystemPrompt, req.Model, providerName, req.Temperature)
	return fmt.Sprintf("%x", md5.Sum([]byte(hashInput)))
}

// CompleteText 调用当前提供者，带超时和缓存
func (s *LLMService) CompleteText(ctx context.Context, req llm.CompletionRequest, useCache bool) (*llm.CompletionResponse, error) {
	s.providerMutex.RLock()
	provider, providerName, state, cache := s.provider, s.providerName, s.readyState, s.cache
	if req.Model == "" {
		req.Model = s.defaultModel
	}
	s.providerMutex.RUnlock()

	if provider == nil {
		return nil, apperrors.NewUnavailableError("LLM service not ready: "+state, nil)
	}

	cacheKey := generateCacheKey(providerName, req)
	if useCache {
		if cached, ok := cache.get(cacheKey); ok {
			s.logger.Debug("LLM cache hit", map[string]interface{}{"cache_key_prefix": cacheKey[:8]})
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := provider.CompleteText(ctx, req)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("LLM request failed", map[string]interface{}{
			"provider": providerName,
			"duration": duration.String(),
			"error":    err.Error(),
		})
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewAppError(apperrors.ErrorTypeTimeout, "LLM request timed out", err)
		}
		return nil, apperrors.NewUnavailableError("LLM request failed", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLLMRequest(providerName, resp.ModelName, resp.TokensUsed, duration)
	}
	if useCache {
		cache.put(cacheKey, resp)
	}
	return resp, nil
}

// get 从缓存中获取结果
func (c *LLMCache) get(key string) (*llm.CompletionResponse, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return nil, false
	}
	return entry.Response, true
}

// put 保存结果到缓存
func (c *LLMCache) put(key string, response *llm.CompletionResponse) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &CacheEntry{Response: response, CreatedAt: time.Now()}
	if len(c.cache) > llmCacheMax {
		c.cleanupOldest(llmCacheMax / 10)
	}
}

// cleanupOldest 清理最旧的缓存条目
func (c *LLMCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	for i := 0; i < min(count, len(entries)); i++ {
		delete(c.cache, entries[i].key)
	}
}
