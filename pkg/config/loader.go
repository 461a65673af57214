package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：
		// 1. 当前目录
		viper.AddConfigPath(".")
		// 2. 当前目录下的 .mockils
		viper.AddConfigPath(".mockils")
		// 3. 用户主目录下的 .mockils
		viper.AddConfigPath(filepath.Join(home, ".mockils"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (MOCKILS_REPOSITORY_PATH 等)
	viper.SetEnvPrefix("MOCKILS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 只是没找到配置文件时，默认值和环境变量仍然可用
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "⚠️  No config file found, using defaults/env vars")
		} else {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "🔧 Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	// 仓库树默认在当前目录的 data 下
	wd, _ := os.Getwd()
	viper.SetDefault("repository.path", filepath.Join(wd, "data"))
	viper.SetDefault("readme.path", "")

	// HTTP 服务
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	// 0 表示不限制：对象下载可能很大，写超时会截断 ServeContent 的响应
	viper.SetDefault("server.write_timeout", time.Duration(0))

	// 快照
	viper.SetDefault("snapshot.type", "memory")
	viper.SetDefault("snapshot.ttl", 10*time.Minute)
	viper.SetDefault("redis.url", "redis://localhost:6379/0")

	// 数据库默认值
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "mockils.db")

	// 日志
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}
