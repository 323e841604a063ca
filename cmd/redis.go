package cmd

import (
	"fmt"
	"log"

	"AviaxMusic/cache"
	"AviaxMusic/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check redis connectivity",
	Long:  `Connects to redis with the configured credentials and runs a basic read/write probe.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		fmt.Println("connected")

		if err := cache.TestRedis(); err != nil {
			log.Fatalf("redis probe failed: %v", err)
		}
		fmt.Println("read/write probe ok")

		if err := cache.CloseRedis(); err != nil {
			log.Printf("close failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
