// Command auth runs the postauth session and password-reset service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/app"
)

func main() {
	checkConfig := flag.Bool("check-config", false, "validate the environment configuration and exit")
	showVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	cfg := app.LoadConfig()
	if *checkConfig {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(2)
		}
		fmt.Println("configuration ok")
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("postauth: init: %v", err)
	}
	if err := application.Run(); err != nil {
		log.Fatalf("postauth: %v", err)
	}
}
