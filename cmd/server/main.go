// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package main

import (
	"fmt"
	"os"

	"github.com/veridian-labs/passkey-server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
