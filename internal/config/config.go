// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"

	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
	encryptionKey string // 非空时 config.json 中的 api_key 加密保存
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DBPath    string `json:"db_path"`
	DebugMode bool   `json:"debug_mode"`

	// 布局策略
	ResolveAIOverlaps bool `json:"resolve_ai_overlaps"`

	// LLM相关配置
	LLMProvider       string            `json:"llm_provider"`
	LLMConfig         map[string]string `json:"llm_config"`
	LLMTimeoutSeconds int               `json:"llm_timeout_seconds"`
}

// Config 存储从环境变量读取的基础配置
type Config struct {
	Port              string
	DataDir           string
	LogDir            string
	DBPath            string
	DebugMode         bool
	ResolveAIOverlaps bool
	LLMProvider       string
	LLMAPIKey         string
	LLMModel          string
	LLMBaseURL        string
	LLMTimeoutSeconds int
	EncryptionKey     string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	dataDir := getEnvPath("DATA_DIR", "data")
	config := &Config{
		Port:              getEnv("PORT", "8080"),
		DataDir:           dataDir,
		LogDir:            getEnvPath("LOG_DIR", "logs"),
		DBPath:            getEnv("DB_PATH", filepath.Join(dataDir, "vanlayout.db")),
		DebugMode:         getEnvBool("DEBUG_MODE", false),
		ResolveAIOverlaps: getEnvBool("RESOLVE_AI_OVERLAPS", false),
		LLMProvider:       getEnv("LLM_PROVIDER", "anthropic"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		LLMTimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 60),
		EncryptionKey:     getEnv("CONFIG_ENCRYPTION_KEY", ""),
	}

	if config.LLMTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT_SECONDS must be positive, got %d", config.LLMTimeoutSeconds)
	}
	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，并确保目录存在
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create directory %s: %v\n", path, err)
		}
	}
	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func (c *Config) llmConfig() map[string]string {
	m := map[string]string{
		"api_key":         c.LLMAPIKey,
		"timeout_seconds": strconv.Itoa(c.LLMTimeoutSeconds),
	}
	if c.LLMModel != "" {
		m["default_model"] = c.LLMModel
	}
	if c.LLMBaseURL != "" {
		m["base_url"] = c.LLMBaseURL
	}
	return m
}

// InitConfig 初始化配置管理器；dataDir 下的 config.json 保存运行时修改的LLM设置
func InitConfig(dataDir string) error {
	baseConfig, err := Load()
	if err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = baseConfig.DataDir
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	configFile = filepath.Join(dataDir, "config.json")
	encryptionKey = baseConfig.EncryptionKey
	currentConfig = &AppConfig{
		Port:              baseConfig.Port,
		DataDir:           dataDir,
		LogDir:            baseConfig.LogDir,
		DBPath:            baseConfig.DBPath,
		DebugMode:         baseConfig.DebugMode,
		ResolveAIOverlaps: baseConfig.ResolveAIOverlaps,
		LLMProvider:       baseConfig.LLMProvider,
		LLMConfig:         baseConfig.llmConfig(),
		LLMTimeoutSeconds: baseConfig.LLMTimeoutSeconds,
	}

	// 尝试从文件加载已保存的LLM设置
	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if json.Unmarshal(data, &saved) == nil && saved.LLMProvider != "" {
			currentConfig.LLMProvider = saved.LLMProvider
			if saved.LLMConfig != nil {
				apiKey, err := utils.DecryptSecret(saved.LLMConfig["api_key"], encryptionKey)
				if err != nil {
					fmt.Fprintf(os.Stderr, "warning: cannot decrypt saved api key, using environment: %v\n", err)
					apiKey = ""
				}
				saved.LLMConfig["api_key"] = apiKey
				// 如果文件中没有API密钥，使用环境变量的密钥
				if saved.LLMConfig["api_key"] == "" {
					saved.LLMConfig["api_key"] = baseConfig.LLMAPIKey
				}
				currentConfig.LLMConfig = saved.LLMConfig
			}
		}
	}

	return saveLocked()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 未初始化时直接读取环境变量
		baseConfig, err := Load()
		if err != nil {
			baseConfig = &Config{Port: "8080", DataDir: "data", LogDir: "logs", LLMProvider: "anthropic", LLMTimeoutSeconds: 60}
		}
		return &AppConfig{
			Port:              baseConfig.Port,
			DataDir:           baseConfig.DataDir,
			LogDir:            baseConfig.LogDir,
			DBPath:            baseConfig.DBPath,
			DebugMode:         baseConfig.DebugMode,
			ResolveAIOverlaps: baseConfig.ResolveAIOverlaps,
			LLMProvider:       baseConfig.LLMProvider,
			LLMConfig:         baseConfig.llmConfig(),
			LLMTimeoutSeconds: baseConfig.LLMTimeoutSeconds,
		}
	}

	configCopy := *currentConfig
	configCopy.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
	for k, v := range currentConfig.LLMConfig {
		configCopy.LLMConfig[k] = v
	}
	return &configCopy
}

// UpdateLLMConfig 更新LLM配置并持久化
func UpdateLLMConfig(provider string, llmConfig map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("config not initialised")
	}
	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = llmConfig
	return saveLocked()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	configMutex.Lock()
	defer configMutex.Unlock()
	return saveLocked()
}

func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("no config to save")
	}

	dir := filepath.Dir(configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	toSave := *currentConfig
	if encryptionKey != "" && currentConfig.LLMConfig["api_key"] != "" {
		toSave.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
		for k, v := range currentConfig.LLMConfig {
			toSave.LLMConfig[k] = v
		}
		sealed, err := utils.EncryptSecret(currentConfig.LLMConfig["api_key"], encryptionKey)
		if err != nil {
			return fmt.Errorf("encrypt api key: %w", err)
		}
		toSave.LLMConfig["api_key"] = sealed
	}

	data, err := json.MarshalIndent(&toSave, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(configFile, data, 0600)
}
