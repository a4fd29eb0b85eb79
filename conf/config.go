package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/zhukovaskychina/xindex/logger"
)

// Cfg 索引引擎配置
type Cfg struct {
	Raw *ini.File

	DataDir  string
	DataFile string

	// 页面与缓冲池
	PageSize        int
	BufferPoolPages int

	// 索引结构
	KeySize         int
	LeafMaxSize     int
	InternalMaxSize int

	// 日志
	LogPath  string
	LogLevel string
}

// NewDefaultCfg 默认配置
func NewDefaultCfg() *Cfg {
	return &Cfg{
		DataDir:         "data",
		DataFile:        "xindex.ibd",
		PageSize:        4096,
		BufferPoolPages: 256,
		KeySize:         8,
		LeafMaxSize:     0,
		InternalMaxSize: 0,
		LogPath:         "",
		LogLevel:        "info",
	}
}

// Load 从ini文件加载配置，缺省项保持默认值
func Load(configPath string) (*Cfg, error) {
	cfg := NewDefaultCfg()
	if configPath == "" {
		return cfg, nil
	}

	raw, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %v", configPath, err)
	}
	cfg.Raw = raw

	section := raw.Section("xindex")
	cfg.DataDir = section.Key("data_dir").MustString(cfg.DataDir)
	cfg.DataFile = section.Key("data_file").MustString(cfg.DataFile)
	cfg.PageSize = section.Key("page_size").MustInt(cfg.PageSize)
	cfg.BufferPoolPages = section.Key("buffer_pool_pages").MustInt(cfg.BufferPoolPages)
	cfg.KeySize = section.Key("key_size").MustInt(cfg.KeySize)
	cfg.LeafMaxSize = section.Key("leaf_max_size").MustInt(cfg.LeafMaxSize)
	cfg.InternalMaxSize = section.Key("internal_max_size").MustInt(cfg.InternalMaxSize)
	cfg.LogPath = section.Key("log_path").MustString(cfg.LogPath)
	cfg.LogLevel = section.Key("log_level").MustString(cfg.LogLevel)

	return cfg, nil
}

// Validate 校验配置
func (cfg *Cfg) Validate() error {
	if cfg.PageSize < 512 || cfg.PageSize&(cfg.PageSize-1) != 0 {
		return fmt.Errorf("page_size must be a power of two >= 512, got %d", cfg.PageSize)
	}
	if cfg.BufferPoolPages < 4 {
		return fmt.Errorf("buffer_pool_pages must be >= 4, got %d", cfg.BufferPoolPages)
	}
	if cfg.KeySize <= 0 {
		return fmt.Errorf("key_size must be positive, got %d", cfg.KeySize)
	}
	return nil
}

// EnsureDataDir 确保数据目录存在并返回数据文件全路径
func (cfg *Cfg) EnsureDataDir() (string, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(cfg.DataDir, cfg.DataFile), nil
}

// InitLogging 按配置初始化日志
func (cfg *Cfg) InitLogging() {
	_ = logger.InitLogger(logger.LogConfig{
		LogPath:  cfg.LogPath,
		LogLevel: cfg.LogLevel,
	})
}
