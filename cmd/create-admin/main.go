package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ettoiadev/williamdiskpizza/internal/config"
	"github.com/ettoiadev/williamdiskpizza/internal/storage/postgres"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/password"
)

// create-admin provisions an admin account from the command line. It is the
// only way to create the first account; every later one can be managed
// through the API.
func main() {
	email := flag.String("email", "", "Admin email address")
	pass := flag.String("password", "", "Admin password (min 8 characters)")
	role := flag.String("role", "admin", "Role: admin or editor")
	flag.Parse()

	if *email == "" || *pass == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email <email> -password <password> [-role admin|editor]")
		os.Exit(2)
	}
	if len(*pass) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	r := types.Role(*role)
	if r != types.RoleAdmin && r != types.RoleEditor {
		log.Fatalf("invalid role: %s", *role)
	}

	cfg := config.MustLoad()

	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer storage.Close()

	hash, err := password.HashPassword(*pass)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	admin, err := storage.CreateAdmin(context.Background(), *email, hash, r)
	if err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	fmt.Printf("created %s user %s (%s)\n", admin.Role, admin.Email, admin.ID)
}
