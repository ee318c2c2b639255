package auth

import (
	"fmt"
	"io"
	"strings"
)

// APIKeyURL is where Pexels issues API keys
const APIKeyURL = "https://www.pexels.com/api/new/"

// ShowAPIKeyGuide explains how to obtain and store a Pexels API key
func ShowAPIKeyGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "📚 PEXELS API KEY GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "This tool calls the Pexels photo search API, which needs a free API key.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🌐 STEP 1: Create a Pexels account")
	fmt.Fprintln(w, "   - Go to https://www.pexels.com and sign up or log in")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔑 STEP 2: Request a key")
	fmt.Fprintf(w, "   - Open %s\n", APIKeyURL)
	fmt.Fprintln(w, "   - Describe your project and accept the API terms")
	fmt.Fprintln(w, "   - Your key is shown on the same page right away")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💾 STEP 3: Give the key to pexelscraper (any one of these)")
	fmt.Fprintln(w, "   • pexelscraper auth login          stores it in the system keychain")
	fmt.Fprintf(w, "   • export %s=...         for the current shell\n", APIKeyEnv)
	fmt.Fprintln(w, "   • pexels.api_key in pexelscraper.yaml")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💡 TIPS:")
	fmt.Fprintln(w, "   • The default quota is 200 requests per hour and 20,000 per month")
	fmt.Fprintln(w, "   • Pexels asks that you credit photographers; the credits CSV does this")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • Treat the key like a password and never commit it to a repository")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)
}

// ShowQuickGuide shows a condensed version for experienced users
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintf(w, "\n🔑 Get a key at %s, then run 'pexelscraper auth login' or set %s\n", APIKeyURL, APIKeyEnv)
}
