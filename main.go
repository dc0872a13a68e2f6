package main

import (
	"fmt"
	"os"

	"weibo-relay/bot"
	"weibo-relay/command"
	"weibo-relay/config"
	"weibo-relay/handlers"
	"weibo-relay/utils"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := utils.InitLogger(cfg.Log, cfg.Bot.AdminWebhookURL); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := bot.Run(cfg, handlers.Register, command.GetCommandDefinitions()); err != nil {
		utils.Logger().WithError(err).Error("Relay exited with errors")
		os.Exit(1)
	}
}
