// Command lazorctl is the operator CLI for the authorization engine's HTTP
// harness, grounded on cmd/nhb-cli's flat os.Args switch.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"lazorkit/cmd/internal/passphrase"
	"lazorkit/crypto"
)

var apiEndpoint = envOr("LAZORCTL_API", "http://localhost:8080")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	switch os.Args[1] {
	case "generate-key":
		if len(os.Args) < 3 {
			fmt.Println("Error: please provide a keystore output path.")
			printUsage()
			return
		}
		generateKey(os.Args[2])
	case "wallet":
		if len(os.Args) < 3 {
			fmt.Println("Error: please provide a wallet address.")
			printUsage()
			return
		}
		getWallet(os.Args[2])
	case "initialize":
		if len(os.Args) < 4 {
			fmt.Println("Error: please provide a keystore file and a default-policy-program address.")
			printUsage()
			return
		}
		initialize(os.Args[2], os.Args[3])
	case "register-policy":
		if len(os.Args) < 4 {
			fmt.Println("Error: please provide a keystore file and a program address.")
			printUsage()
			return
		}
		registerPolicy(os.Args[2], os.Args[3])
	case "pause", "unpause":
		if len(os.Args) < 3 {
			fmt.Println("Error: please provide a keystore file.")
			printUsage()
			return
		}
		setPaused(os.Args[2], os.Args[1] == "pause")
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  lazorctl generate-key <keystore-path>")
	fmt.Println("  lazorctl wallet <address>")
	fmt.Println("  lazorctl initialize <keystore-file> <default-policy-program>")
	fmt.Println("  lazorctl register-policy <keystore-file> <program-address>")
	fmt.Println("  lazorctl pause|unpause <keystore-file>")
	fmt.Println()
	fmt.Println("The keystore passphrase is read from LAZORCTL_PASSPHRASE, or prompted for interactively.")
}

func generateKey(path string) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}
	pass, err := passphrase.NewSource("LAZORCTL_PASSPHRASE").Get()
	if err != nil {
		fmt.Printf("Error reading passphrase: %v\n", err)
		return
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fmt.Printf("Error writing keystore: %v\n", err)
		return
	}
	fmt.Printf("Generated new authority key, saved to %s\n", path)
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
}

func loadAuthorityKey(path string) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource("LAZORCTL_PASSPHRASE").Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(path, pass)
}

func getWallet(addr string) {
	resp, err := http.Get(apiEndpoint + "/v1/wallets/" + addr)
	if err != nil {
		fmt.Printf("Error contacting %s: %v\n", apiEndpoint, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(os.Stdout, resp.Body)
	fmt.Println()
}

func initialize(keystoreFile, defaultPolicyProgram string) {
	key, err := loadAuthorityKey(keystoreFile)
	if err != nil {
		fmt.Printf("Error loading authority key: %v\n", err)
		return
	}
	body, _ := json.Marshal(map[string]string{
		"authority":              key.PubKey().Address().String(),
		"default_policy_program": defaultPolicyProgram,
	})
	postAdmin("/v1/admin/initialize", body)
}

func registerPolicy(keystoreFile, program string) {
	if _, err := loadAuthorityKey(keystoreFile); err != nil {
		fmt.Printf("Error loading authority key: %v\n", err)
		return
	}
	body, _ := json.Marshal(map[string]string{"program": program})
	postAdmin("/v1/admin/register-policy", body)
}

func setPaused(keystoreFile string, paused bool) {
	if _, err := loadAuthorityKey(keystoreFile); err != nil {
		fmt.Printf("Error loading authority key: %v\n", err)
		return
	}
	body, _ := json.Marshal(map[string]bool{"paused": paused})
	postAdmin("/v1/admin/config/paused", body)
}

func postAdmin(path string, body []byte) {
	resp, err := http.Post(apiEndpoint+path, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error contacting %s: %v\n", apiEndpoint, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(os.Stdout, resp.Body)
	fmt.Println()
}
