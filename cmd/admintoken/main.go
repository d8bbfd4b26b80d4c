// Command admintoken prints a bearer token for the admin batch endpoint.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"stock_dashboard/internal/platform/config"
	jwtmw "stock_dashboard/internal/platform/jwt"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := jwtmw.NewGenerator(cfg.JWT.Secret, *ttl).GenerateToken(*subject, jwtmw.ScopeAdmin)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
