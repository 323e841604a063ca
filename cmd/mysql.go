package cmd

import (
	"fmt"
	"log"

	"AviaxMusic/config"
	"AviaxMusic/db"

	"github.com/spf13/cobra"
)

var mysqlCmd = &cobra.Command{
	Use:   "mysql",
	Short: "Check mysql connectivity and bootstrap the schema",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MySQL: %s:%s/%s\n", cfg.DBHost, cfg.DBPort, cfg.DBName)

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("mysql connection failed: %v", err)
		}
		fmt.Println("connected")

		if err := db.InitDB(); err != nil {
			log.Fatalf("schema bootstrap failed: %v", err)
		}
		fmt.Println("schema ok")
	},
}

func init() {
	rootCmd.AddCommand(mysqlCmd)
}
