package main

import (
	"log"

	"github.com/anirbandas/job-apply-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
