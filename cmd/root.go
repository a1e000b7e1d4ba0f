// Package cmd 是 readrec 的命令行入口（cobra）。
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "readrec"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "readrec is a reading-content recommendation service",
		Long: "readrec 根据读者的兴趣、阅读水平与内容热度生成可解释的推荐，\n" +
			"支持关键词与稠密向量两类相似度后端的运行时切换。",
	}
)

// Execute 执行根命令。
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}
