package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pexelscraper/pkg/auth"
	"pexelscraper/pkg/config"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Pexels API keys",
	Long: `Manage stored Pexels API keys.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - The PEXELS_API_KEY environment variable (read only)

Never share your API key or commit it to a repository!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a Pexels API key",
	Long: `Store a Pexels API key in the system keychain or an encrypted file.

The key is saved under the given name, or "default" when no name is given.
'pexelscraper scrape' uses the default key unless --account is passed.`,
	Example: `  # Store the default key
  pexelscraper auth login

  # Store a second key under a name
  pexelscraper auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored API keys",
	Long: `Remove a stored Pexels API key.

Without a name you are shown the stored keys to choose from, including an
option to remove all of them.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored API keys",
	Long:  `List stored Pexels API keys with the key values masked.`,
	Run:   runList,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which API key a scrape would use",
	Long: `Show where the API key for the next scrape comes from: the configuration
or environment, or a stored key.`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	name := auth.DefaultAccountName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowAPIKeyGuide(os.Stdout)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("⚠️  A key named '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	var apiKey string
	for {
		fmt.Print("🔐 Pexels API key (hidden as you type): ")
		apiKey, err = readPassword(reader)
		if err != nil {
			fail("Failed to read API key", err)
		}

		if err := auth.ValidateAPIKey(apiKey); err != nil {
			fmt.Printf("\n❌ %v\n", err)
			fmt.Print("Try again? (Y/n): ")
			again, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(again)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	account := &auth.Account{Name: name, APIKey: apiKey}
	if err := manager.Store(account); err != nil {
		fail("Failed to store API key", err)
	}

	console.PrintSuccess(fmt.Sprintf("API key saved as '%s' (%s)", account.Name, auth.MaskString(apiKey)))
	fmt.Println("\n📖 Next:")
	fmt.Println("   $ pexelscraper scrape --query mountains --num-images 20")
	if name != auth.DefaultAccountName {
		fmt.Printf("   $ pexelscraper scrape --account %s\n", name)
	}
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			fail("Failed to remove API key", err)
		}
		console.PrintSuccess("API key removed: " + args[0])
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		console.PrintError("No stored API keys found")
		return
	}

	fmt.Println("Select key to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Name)
	}
	fmt.Printf("  %d. Remove all keys\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice == len(accounts)+1:
		fmt.Print("Remove ALL keys? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}
		if err := manager.DeleteAll(); err != nil {
			fail("Failed to remove all keys", err)
		}
		console.PrintSuccess("All API keys removed")
	case choice > 0 && choice <= len(accounts):
		account := accounts[choice-1]
		if err := manager.Delete(account.Name); err != nil {
			fail("Failed to remove API key", err)
		}
		console.PrintSuccess("API key removed: " + account.Name)
	default:
		fail("Invalid choice", nil)
	}
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	accounts, err := manager.List()
	if err != nil {
		fail("Failed to list API keys", err)
	}

	if len(accounts) == 0 {
		console.PrintInfo("No stored API keys", "Use 'pexelscraper auth login' to add one")
		return
	}

	console.PrintHighlight("Stored API keys")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Name: %s\n", i+1, sanitized.Name)
		fmt.Printf("   Key: %s\n", sanitized.APIKey)
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		fail("Failed to load configuration", err)
	}

	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	source, err := resolveAPIKey(cfg, manager, "")
	if err != nil {
		console.PrintWarning("No API key available")
		auth.ShowQuickGuide(os.Stdout)
		os.Exit(1)
	}

	console.PrintInfo("API key", auth.MaskString(cfg.Pexels.APIKey))
	console.PrintInfo("Source", source)
	if os.Getenv(auth.APIKeyEnv) != "" {
		console.PrintDim(auth.APIKeyEnv + " is set in the environment")
	}
}

// readPassword reads a secret from stdin without echoing when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
