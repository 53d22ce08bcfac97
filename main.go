// SPDX-License-Identifier: MPL-2.0

package main

import cmd "drpver/cmd/drpver"

func main() {
	cmd.Execute()
}
