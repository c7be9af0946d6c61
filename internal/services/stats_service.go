// internal/services/stats_service.go
package services

import (
	"maps"
	"sync"
	"time"

	"github.com/vanplanner/VanLayoutMCP/internal/storage"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const (
	statsDir  = "stats"
	statsFile = "usage_stats.json"
)

// UsageStats 表示AI布局请求的使用统计
type UsageStats struct {
	TodayRequests int            `json:"today_requests"`
	MonthlyTokens int            `json:"monthly_tokens"`
	DailyStats    map[string]int `json:"daily_stats"`
	MonthlyStats  map[string]int `json:"monthly_stats"`
	LastUpdated   time.Time      `json:"last_updated"`
}

// StatsService 记录AI请求次数和token用量，持久化到文件存储
type StatsService struct {
	store       *storage.FileStorage
	mutex       sync.Mutex
	cachedStats *UsageStats
	now         func() time.Time

	// 批量保存控制
	isDirty      bool
	lastSaveTime time.Time
	saveInterval time.Duration
}

// NewStatsService 创建统计服务实例
func NewStatsService(store *storage.FileStorage) *StatsService {
	return &StatsService{
		store:        store,
		now:          time.Now,
		saveInterval: 30 * time.Second,
	}
}

func newUsageStats(now time.Time) *UsageStats {
	return &UsageStats{
		DailyStats:   make(map[string]int),
		MonthlyStats: make(map[string]int),
		LastUpdated:  now,
	}
}

// initStatsUnlocked 初始化统计数据（无锁版本）
func (s *StatsService) initStatsUnlocked() {
	var loaded UsageStats
	if err := s.store.LoadJSONFile(statsDir, statsFile, &loaded); err == nil {
		if loaded.DailyStats == nil {
			loaded.DailyStats = make(map[string]int)
		}
		if loaded.MonthlyStats == nil {
			loaded.MonthlyStats = make(map[string]int)
		}
		s.cachedStats = &loaded
		return
	}
	s.cachedStats = newUsageStats(s.now())
}

// rollPeriod 跨日或跨月时重置计数
func (s *StatsService) rollPeriod(now time.Time) {
	stats := s.cachedStats
	if now.Format("2006-01-02") != stats.LastUpdated.Format("2006-01-02") {
		stats.TodayRequests = 0
	}
	if now.Format("2006-01") != stats.LastUpdated.Format("2006-01") {
		stats.MonthlyTokens = 0
	}
}

// RecordAIRequest 记录一次AI布局请求
func (s *StatsService) RecordAIRequest(tokens int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cachedStats == nil {
		s.initStatsUnlocked()
	}

	now := s.now()
	s.rollPeriod(now)

	today := now.Format("2006-01-02")
	month := now.Format("2006-01")
	s.cachedStats.TodayRequests++
	s.cachedStats.MonthlyTokens += tokens
	s.cachedStats.DailyStats[today]++
	s.cachedStats.MonthlyStats[month] += tokens
	s.cachedStats.LastUpdated = now
	s.isDirty = true

	// 只在间隔足够长时立即保存
	if now.Sub(s.lastSaveTime) > s.saveInterval {
		return s.saveStatsImmediate()
	}
	return nil
}

// GetUsageStats 获取使用统计的副本
func (s *StatsService) GetUsageStats() *UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cachedStats == nil {
		s.initStatsUnlocked()
	}
	s.rollPeriod(s.now())

	return &UsageStats{
		TodayRequests: s.cachedStats.TodayRequests,
		MonthlyTokens: s.cachedStats.MonthlyTokens,
		DailyStats:    maps.Clone(s.cachedStats.DailyStats),
		MonthlyStats:  maps.Clone(s.cachedStats.MonthlyStats),
		LastUpdated:   s.cachedStats.LastUpdated,
	}
}

func (s *StatsService) saveStatsImmediate() error {
	if !s.isDirty {
		return nil
	}
	if err := s.store.SaveJSONFile(statsDir, statsFile, s.cachedStats); err != nil {
		return err
	}
	s.isDirty = false
	s.lastSaveTime = s.now()
	return nil
}

// Flush 保存未写入的数据
func (s *StatsService) Flush() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.saveStatsImmediate()
}

// Close 关闭前保存数据
func (s *StatsService) Close() error {
	if err := s.Flush(); err != nil {
		utils.GetLogger().Warn("failed to flush usage stats", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}
