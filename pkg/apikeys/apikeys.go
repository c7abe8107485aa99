// Package apikeys resolves provider credentials: in-memory cache first, then
// the key file, then environment, then an interactive prompt.
package apikeys

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	keysDir  = ".council"
	keysFile = "api_keys.json"
)

var (
	apiKeys     map[string]string
	apiKeysOnce sync.Once
	apiKeysMu   sync.Mutex
)

// GetAPIKey retrieves the API key for the specified provider. It first checks
// the in-memory cache, then the key file, then environment variables, and
// finally prompts the user if interactive mode is enabled. Keys found in the
// environment or entered interactively are saved for future runs.
func GetAPIKey(provider string, interactive bool) (string, error) {
	apiKeysOnce.Do(func() {
		apiKeys = make(map[string]string)
		loadedKeys, err := loadAPIKeys()
		if err == nil {
			apiKeysMu.Lock()
			for k, v := range loadedKeys {
				apiKeys[k] = v
			}
			apiKeysMu.Unlock()
		} else {
			fmt.Printf("Warning: Could not load API keys from file: %v\n", err)
		}
	})

	apiKeysMu.Lock()
	key, ok := apiKeys[provider]
	apiKeysMu.Unlock()

	if ok && key != "" {
		return key, nil
	}

	// Check environment variable
	key = os.Getenv(envVarName(provider))
	if key != "" {
		storeKey(provider, key)
		return key, nil
	}

	// If not found and interactive, prompt the user
	if interactive {
		key = promptForAPIKey(provider)
		if key != "" {
			storeKey(provider, key)
			return key, nil
		}
	}

	return "", fmt.Errorf("API key for %s not found and not provided", provider)
}

// envVarName maps a provider to its conventional environment variable,
// e.g. openrouter -> OPENROUTER_API_KEY.
func envVarName(provider string) string {
	return strings.ReplaceAll(strings.ToUpper(provider), "-", "_") + "_API_KEY"
}

func storeKey(provider, key string) {
	apiKeysMu.Lock()
	apiKeys[provider] = key
	snapshot := make(map[string]string, len(apiKeys))
	for k, v := range apiKeys {
		snapshot[k] = v
	}
	apiKeysMu.Unlock()
	if err := saveAPIKeys(snapshot); err != nil {
		fmt.Printf("Warning: Could not save API keys: %v\n", err)
	}
}

// loadAPIKeys loads the API keys from the key file.
func loadAPIKeys() (map[string]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not get user home directory: %w", err)
	}
	filePath := filepath.Join(homeDir, keysDir, keysFile)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("could not read API keys file: %w", err)
	}

	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("could not unmarshal API keys: %w", err)
	}
	return keys, nil
}

// saveAPIKeys saves the API keys to the key file with owner-only permissions.
func saveAPIKeys(keys map[string]string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not get user home directory: %w", err)
	}
	dirPath := filepath.Join(homeDir, keysDir)

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("could not create %s directory: %w", keysDir, err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal API keys: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dirPath, keysFile), data, 0600); err != nil {
		return fmt.Errorf("could not write API keys file: %w", err)
	}
	return nil
}

// promptForAPIKey asks the user for a key. Input is masked when stdin is a
// terminal.
func promptForAPIKey(provider string) string {
	fmt.Printf("Enter your %s API key (or set %s): ", provider, envVarName(provider))

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(raw))
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
