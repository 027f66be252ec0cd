package config

import (
	"os"
	"path/filepath"
	"regexp"
)

// ClientCredentials are the Google OAuth client ID/secret pair used by the
// target app.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

var (
	clientIDRe     = regexp.MustCompile(`ANTIGRAVITY_CLIENT_ID\s*=\s*"([^"]+)"`)
	clientSecretRe = regexp.MustCompile(`ANTIGRAVITY_CLIENT_SECRET\s*=\s*"([^"]+)"`)
)

// constantsFilePaths lists the installed auth plugin bundles that ship the
// client constants, most specific first.
func constantsFilePaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	pkg := filepath.Join("node_modules", "opencode-antigravity-auth", "dist", "src")
	return []string{
		filepath.Join(home, ".config", "opencode", pkg, "constants.d.ts"),
		filepath.Join(home, ".config", "opencode", pkg, "constants.js"),
	}
}

// LoadClientCredentials reads the client constants from the first plugin
// bundle that has both values. Nil when none is installed.
func LoadClientCredentials() *ClientCredentials {
	for _, path := range constantsFilePaths() {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if creds := parseConstants(string(content)); creds != nil {
			return creds
		}
	}
	return nil
}

// parseConstants extracts declarations like
// `export declare const ANTIGRAVITY_CLIENT_ID = "...";`.
func parseConstants(content string) *ClientCredentials {
	creds := &ClientCredentials{}

	if match := clientIDRe.FindStringSubmatch(content); len(match) > 1 {
		creds.ClientID = match[1]
	}
	if match := clientSecretRe.FindStringSubmatch(content); len(match) > 1 {
		creds.ClientSecret = match[1]
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil
	}
	return creds
}
