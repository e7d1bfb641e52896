// Command nimart はNimartのAPIサーバー・ワーカー・マイグレーションを起動する。
//
// 使い方:
//
//	nimart [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/nimart/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nimart: %v\n", err)
		os.Exit(1)
	}
}
