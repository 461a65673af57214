package commands

import (
	"fmt"
	"log/slog"
	"os"

	"mockils/pkg/app"
	"mockils/pkg/client"
	"mockils/pkg/config"
	"mockils/pkg/server"
	"mockils/pkg/snapshot"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	remoteAddr string
	// 全局应用实例，供子命令使用
	ILS *app.App
	// Remote 非空时子命令通过 HTTP 访问一个运行中的 mockils-server
	Remote *client.ILSClient
)

var rootCmd = &cobra.Command{
	Use:   "mockils",
	Short: "MockILS: browse a repository tree the way the access API serves it",
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// CLI 的日志写 stderr，不污染 cat 的输出
		logger, err := server.NewLogger(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		// 远程模式不需要本地目录树
		if remoteAddr != "" {
			Remote, err = client.NewILSClient(remoteAddr)
			return err
		}

		ILS, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize mockils: %w\n(Is repository.path pointing at an existing directory?)", err)
		}
		keepSharedSnapshots(ILS)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if Remote != nil {
			return Remote.Close()
		}
		if ILS != nil {
			return ILS.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

// keepSharedSnapshots 丢弃只存在于本进程的快照后端
// 每条 CLI 命令都是一个新进程，内存快照的 id 在下一条命令里永远解析不到
// 只有 redis / sql 这类共享后端才记录快照
func keepSharedSnapshots(a *app.App) {
	if _, ok := a.Snapshots.(*snapshot.MemoryStore); ok {
		a.Snapshots = nil
	}
}

// Execute 是入口
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// 在初始化时，加载配置
	cobra.OnInitialize(initConfig)

	// 1. 定义全局参数 --config
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mockils/config.yaml)")

	// 2. --remote 指向运行中的服务端，例如 localhost:8080
	rootCmd.PersistentFlags().StringVar(&remoteAddr, "remote", "", "address of a running mockils-server (skips the local repository tree)")

	// 3. 定义 repository.path 参数，并绑定到 Viper
	// 这样用户既可以在 yaml 里写，也可以用 --repository-path 覆盖
	rootCmd.PersistentFlags().String("repository-path", "", "Root directory of the repository tree")
	if err := viper.BindPFlag("repository.path", rootCmd.PersistentFlags().Lookup("repository-path")); err != nil {
		fmt.Println("Failed to bind flag:", err)
		os.Exit(1)
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}
