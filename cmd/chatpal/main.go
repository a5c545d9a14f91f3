package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/chatpal/internal/config"
	"github.com/stellarlinkco/chatpal/internal/gateway"
	"github.com/stellarlinkco/chatpal/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "chatpal",
	Short: "chatpal - chat-bot adapter",
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the bot (channels + greeting timers + maintenance)",
	RunE:  runGateway,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config, store, and persona files",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chatpal status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(gatewayCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'chatpal onboard' or set CHATPAL_API_KEY / OPENAI_API_KEY")
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, _ := config.LoadConfig()
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Bot.MediaDir, 0755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	writeIfNotExists(cfg.Bot.PersonaPath, defaultPersonaJSON)

	fmt.Printf("Workspace ready: %s\n", cfgDir)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key and telegram token\n", cfgPath)
	fmt.Println("  2. Or set CHATPAL_API_KEY / CHATPAL_TELEGRAM_TOKEN environment variables")
	fmt.Println("  3. Run 'chatpal gateway' to start the bot")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Bot name: %s\n", cfg.Bot.Name)
	fmt.Printf("Model: %s\n", cfg.Provider.Model)
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("Group messages: disabled=%v\n", cfg.Bot.DisableGroupMessage)

	st := store.Open(cfg.Store.Path, store.Options{DefaultPrompt: cfg.Bot.DefaultPrompt})
	fmt.Printf("Conversations: %d\n", len(st.IDs()))

	return nil
}

func writeIfNotExists(path, content string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = os.WriteFile(path, []byte(content), 0644)
		fmt.Printf("  Created: %s\n", path)
	}
}

const defaultPersonaJSON = `[
  {
    "name": "助手",
    "info": "认真回答问题的AI助手",
    "prompt": "你是一名AI助手，尽可能解决用户问题"
  },
  {
    "name": "猫娘",
    "info": "喜欢在句尾加上喵~",
    "prompt": "你是一只可爱的猫娘，说话时会在句尾加上喵~"
  }
]
`
