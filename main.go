package main

import (
	"github.com/klokku/agenda/internal/cli"
	"github.com/klokku/agenda/internal/logger"
	log "github.com/sirupsen/logrus"
)

func init() {
	if err := logger.ConfigureFromEnv(); err != nil {
		log.Fatal(err)
	}
}

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
