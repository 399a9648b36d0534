package main

import (
	"fmt"

	"github.com/gmssh-project/gmssh/cmd"
	"github.com/gmssh-project/gmssh/pkg/logger"
)

func main() {
	defer logger.Close()

	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		return
	}
}
