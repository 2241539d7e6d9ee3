// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package cli

import (
	"github.com/spf13/cobra"
)

var (
	// configPath is the --config flag, shared by all commands.
	configPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "passkey-server",
	Short: "Passwordless WebAuthn authentication server",
	Long: `passkey-server is a demo authentication server built on WebAuthn
passkeys. It registers authenticators, verifies assertion ceremonies
with sign-counter replay protection, and issues JWT sessions on
successful sign-in.

The user verification policy (touch_only, pin_required, preferred) can
be switched at runtime through the API unless locked in the config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default is built-in localhost defaults, PASSKEY_CONFIG env overrides)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
