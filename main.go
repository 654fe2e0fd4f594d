// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/factoriotools/modloader/cmd/modloader"

func main() {
	cmd.Execute()
}
