// Bootstrap tool: creates the first administrator account so the admin API
// can be used to provision everyone else.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"presensi/internal/auth"
	"presensi/internal/config"
	"presensi/internal/store"
	"presensi/internal/user"
)

func main() {
	name := flag.String("name", "admin", "administrator user name")
	password := flag.String("password", "", "administrator password (min 6 characters)")
	flag.Parse()

	if len(*password) < 6 {
		log.Fatal("password must be at least 6 characters (-password)")
	}

	cfg := config.Load()
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	u, err := user.New(*name, hash, user.RoleAdmin, "", time.Now())
	if err != nil {
		log.Fatalf("build user: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := user.NewPostgresStore(db.Client).Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicateName) {
			log.Fatalf("user %q already exists", *name)
		}
		log.Fatalf("create admin: %v", err)
	}

	log.Printf("admin %q created", *name)
}
