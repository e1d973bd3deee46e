package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/safework-pro/qr-registration-backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Bootstrap helper for a fresh deployment: prints a JWT secret for the .env
// file and, when -password is given, a bcrypt hash for seeding the first
// admin_users row.
func main() {
	var password string
	var cost int
	flag.StringVar(&password, "password", "", "admin password to hash for the admin_users seed row")
	flag.IntVar(&cost, "cost", 12, "bcrypt cost for the password hash")
	flag.Parse()

	secret, err := utils.GenerateSecret(32) // 256-bit
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secret)
	fmt.Println()

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println("Password hash for the admin_users seed row:")
		fmt.Println()
		fmt.Println(string(hash))
		fmt.Println()
	}

	fmt.Println("Keep these values out of version control.")
}
